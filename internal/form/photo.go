package form

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"

	"eligicert/internal/models"
)

// DefaultMaxPhotoBytes caps an uploaded photo at 5 MiB.
const DefaultMaxPhotoBytes int64 = 5 << 20

var (
	ErrNotImage      = errors.New("selected file is not a supported image")
	ErrPhotoTooLarge = errors.New("selected photo is too large")
	// ErrStalePhoto is returned when a newer selection replaced this one
	// before it finished loading. The newer photo is kept.
	ErrStalePhoto = errors.New("photo selection superseded by a newer one")
)

// LoadPhoto reads a selected image and stores it as the form photo. Loads
// follow a latest-selection-wins policy: a load that finishes after another
// selection (or a clear) was made is dropped with ErrStalePhoto.
func (s *State) LoadPhoto(ctx context.Context, r io.Reader, contentType string) error {
	ticket := s.BeginPhotoLoad()

	photo, err := ReadPhoto(ctx, r, contentType, s.maxPhotoBytes)
	if err != nil {
		return err
	}
	return s.CompletePhotoLoad(ticket, photo)
}

// BeginPhotoLoad records a new selection and returns its ticket. Any load
// holding an older ticket is superseded.
func (s *State) BeginPhotoLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photoGen++
	return s.photoGen
}

// CompletePhotoLoad stores p if ticket is still the latest selection, and
// returns ErrStalePhoto otherwise.
func (s *State) CompletePhotoLoad(ticket uint64, p *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.photoGen {
		return ErrStalePhoto
	}
	s.photo = p
	return nil
}

// ReadPhoto reads and checks an image of at most limit bytes (limit <= 0
// uses DefaultMaxPhotoBytes). It does not touch any form state.
func ReadPhoto(ctx context.Context, r io.Reader, contentType string, limit int64) (*models.Photo, error) {
	if limit <= 0 {
		limit = DefaultMaxPhotoBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrPhotoTooLarge
	}
	if len(data) == 0 {
		return nil, ErrNotImage
	}

	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	} else if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		contentType = sniffed
	} else if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/" + format
	}

	return &models.Photo{ContentType: contentType, Data: data}, nil
}
