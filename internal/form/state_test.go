package form

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eligicert/internal/models"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 5))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func filledForm(t *testing.T) *State {
	t.Helper()
	s := New(0)
	s.SetField(FieldName, "Ravi Kumar")
	s.SetField(FieldTenthMarks, "85")
	s.SetField(FieldTwelfthMarks, "90")
	require.NoError(t, s.LoadPhoto(context.Background(), bytes.NewReader(pngBytes(t)), "image/png"))
	return s
}

func TestValidate_Name(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		s := filledForm(t)
		s.SetField(FieldName, name)
		assert.False(t, s.Validate())
		assert.Equal(t, "Name is required", s.Errors()[FieldName])
	}
}

func TestValidate_Marks(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "10th marks are required"},
		{"  ", "10th marks are required"},
		{"abc", "Marks should be between 0 and 100"},
		{"-1", "Marks should be between 0 and 100"},
		{"100.5", "Marks should be between 0 and 100"},
		{"NaN", "Marks should be between 0 and 100"},
		{"Inf", "Marks should be between 0 and 100"},
		{"0", ""},
		{"100", ""},
		{" 72.5 ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			s := filledForm(t)
			s.SetField(FieldTenthMarks, tt.raw)
			ok := s.Validate()
			assert.Equal(t, tt.want == "", ok)
			assert.Equal(t, tt.want, s.Errors()[FieldTenthMarks])
		})
	}

	s := filledForm(t)
	s.SetField(FieldTwelfthMarks, "")
	assert.False(t, s.Validate())
	assert.Equal(t, "12th marks are required", s.Errors()[FieldTwelfthMarks])
}

func TestValidate_ReplacesErrors(t *testing.T) {
	s := New(0)
	assert.False(t, s.Validate())
	assert.Len(t, s.Errors(), 4)

	s.SetField(FieldName, "Asha")
	s.SetField(FieldTenthMarks, "70")
	s.SetField(FieldTwelfthMarks, "72")
	s.SetPhoto(&models.Photo{ContentType: "image/png", Data: pngBytes(t)})
	assert.True(t, s.Validate())
	assert.Empty(t, s.Errors())
}

func TestSetField_DoesNotValidate(t *testing.T) {
	s := New(0)
	s.SetField(FieldName, "")
	s.SetField("unknown", "ignored")
	assert.Empty(t, s.Errors())
	assert.Equal(t, "", s.Field("unknown"))
}

func TestTrySubmit(t *testing.T) {
	s := filledForm(t)
	s.SetField(FieldName, "  Ravi Kumar ")

	sub, ok := s.TrySubmit()
	require.True(t, ok)
	assert.Equal(t, "Ravi Kumar", sub.Name)
	assert.Equal(t, 85.0, sub.TenthMarks)
	assert.Equal(t, 90.0, sub.TwelfthMarks)
	require.NotNil(t, sub.Photo)
	assert.Equal(t, "image/png", sub.Photo.ContentType)

	// raw values are untouched
	assert.Equal(t, "  Ravi Kumar ", s.Field(FieldName))
	assert.Equal(t, "85", s.Field(FieldTenthMarks))
}

func TestTrySubmit_MissingPhoto(t *testing.T) {
	s := filledForm(t)
	s.SetPhoto(nil)

	_, ok := s.TrySubmit()
	assert.False(t, ok)
	assert.Equal(t, map[string]string{FieldPhoto: "Photo is required"}, s.Errors())
}

func TestLoadPhoto_Rejects(t *testing.T) {
	s := New(0)
	err := s.LoadPhoto(context.Background(), strings.NewReader("not an image at all"), "image/png")
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Nil(t, s.Photo())

	err = s.LoadPhoto(context.Background(), strings.NewReader(""), "image/png")
	assert.ErrorIs(t, err, ErrNotImage)

	small := New(16)
	err = small.LoadPhoto(context.Background(), bytes.NewReader(pngBytes(t)), "image/png")
	assert.ErrorIs(t, err, ErrPhotoTooLarge)
}

func TestLoadPhoto_ContentTypeSniffed(t *testing.T) {
	s := New(0)
	require.NoError(t, s.LoadPhoto(context.Background(), bytes.NewReader(pngBytes(t)), "application/octet-stream"))
	assert.Equal(t, "image/png", s.Photo().ContentType)
}

func TestLoadPhoto_CanceledContext(t *testing.T) {
	s := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.LoadPhoto(ctx, bytes.NewReader(pngBytes(t)), "image/png")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s.Photo())
}

// gatedReader signals when it is first read and then blocks until released.
type gatedReader struct {
	started chan struct{}
	release chan struct{}
	r       io.Reader
	once    bool
}

func (g *gatedReader) Read(p []byte) (int, error) {
	if !g.once {
		g.once = true
		close(g.started)
		<-g.release
	}
	return g.r.Read(p)
}

func TestLoadPhoto_LatestSelectionWins(t *testing.T) {
	s := New(0)
	first := pngBytes(t)

	slow := &gatedReader{
		started: make(chan struct{}),
		release: make(chan struct{}),
		r:       bytes.NewReader(first),
	}
	done := make(chan error, 1)
	go func() {
		done <- s.LoadPhoto(context.Background(), slow, "image/png")
	}()
	<-slow.started

	second := &models.Photo{ContentType: "image/png", Data: pngBytes(t)}
	s.SetPhoto(second)

	close(slow.release)
	assert.ErrorIs(t, <-done, ErrStalePhoto)
	assert.Same(t, second, s.Photo())
}

func TestLoadPhoto_ClearSupersedesLoad(t *testing.T) {
	s := New(0)
	ticket := s.BeginPhotoLoad()
	s.SetPhoto(nil)
	err := s.CompletePhotoLoad(ticket, &models.Photo{ContentType: "image/png", Data: []byte{1}})
	assert.ErrorIs(t, err, ErrStalePhoto)
	assert.Nil(t, s.Photo())
}

func TestSnapshotRestore(t *testing.T) {
	s := filledForm(t)
	s.SetField(FieldTenthMarks, "abc")
	s.Validate()

	r := Restore(s.Snapshot(), 0)
	assert.Equal(t, "Ravi Kumar", r.Field(FieldName))
	assert.Equal(t, "abc", r.Field(FieldTenthMarks))
	assert.Equal(t, s.Errors(), r.Errors())
	assert.Equal(t, s.Photo(), r.Photo())
}

func TestPhotoTicket_SurvivesSnapshot(t *testing.T) {
	s := New(0)
	older := s.BeginPhotoLoad()

	// another request restores the same state and selects a newer photo
	other := Restore(s.Snapshot(), 0)
	newer := other.BeginPhotoLoad()
	require.NoError(t, other.CompletePhotoLoad(newer, &models.Photo{ContentType: "image/png", Data: []byte{2}}))

	after := Restore(other.Snapshot(), 0)
	err := after.CompletePhotoLoad(older, &models.Photo{ContentType: "image/png", Data: []byte{1}})
	assert.ErrorIs(t, err, ErrStalePhoto)
	assert.Equal(t, []byte{2}, after.Photo().Data)
}

func TestReset(t *testing.T) {
	s := filledForm(t)
	ticket := s.BeginPhotoLoad()
	s.Validate()

	s.Reset()
	assert.Equal(t, "", s.Field(FieldName))
	assert.Nil(t, s.Photo())
	assert.Empty(t, s.Errors())
	assert.ErrorIs(t, s.CompletePhotoLoad(ticket, &models.Photo{Data: []byte{1}}), ErrStalePhoto)
}
