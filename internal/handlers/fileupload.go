package handlers

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"eligicert/internal/certificate"
	"eligicert/internal/form"
	"eligicert/internal/models"
	"eligicert/internal/notify"
	"eligicert/internal/page"
)

const (
	// multipart overhead allowed on top of the photo itself
	formOverhead = 1 << 20
	maxFieldSize = 4 << 10
)

var (
	textFields             = []string{form.FieldName, form.FieldTenthMarks, form.FieldTwelfthMarks}
	photoFieldAlternatives = []string{"photoInput", "image", "file", "upload", "photo[]"}
)

// upload is a parsed form body. When a photo file was sent, ticket is the
// selection it was registered under before its bytes were read.
type upload struct {
	fields   map[string]string
	hasPhoto bool
	ticket   uint64
	photo    *models.Photo
	photoErr error
}

// POST /apply
// Stores the submitted fields and photo, then tries to submit. Validation
// errors stay on the form for the next render.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	up, err := h.readUpload(w, r, h.beginPhoto(ctx))
	if err != nil {
		h.uploadFailed(w, r, err)
		return
	}

	var issued bool
	v, err := h.update(ctx, func(v *visit) error {
		issued = false
		if err := h.applyUpload(ctx, v, up); err != nil {
			return err
		}
		issued = v.ctrl.Submit()
		return nil
	})
	if err == nil && issued {
		h.logger.Info("certificate issued",
			zap.String("session", v.id),
			zap.String("label", v.ctrl.Renderer(certificate.Options{}).Outcome().Label()),
		)
	}
	h.done(w, r, v, err)
}

// POST /photo
// Replaces the selected photo without submitting. Of several uploads in
// flight for one session, only the most recently started can land.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	up, err := h.readUpload(w, r, h.beginPhoto(ctx))
	if err != nil {
		h.uploadFailed(w, r, err)
		return
	}
	v, err := h.update(ctx, func(v *visit) error {
		return h.applyUpload(ctx, v, up)
	})
	h.done(w, r, v, err)
}

// POST /photo/clear
func (h *Handler) ClearPhoto(w http.ResponseWriter, r *http.Request) {
	up, err := h.readUpload(w, r, nil)
	if err != nil {
		h.uploadFailed(w, r, err)
		return
	}
	v, err := h.update(r.Context(), func(v *visit) error {
		if v.ctrl.Mode() == page.Showing {
			return errShowing
		}
		keepFields(v, up)
		v.ctrl.Form().SetPhoto(nil)
		return nil
	})
	h.done(w, r, v, err)
}

// beginPhoto registers a new photo selection with the session and returns
// its ticket. Loads holding an older ticket can no longer complete.
func (h *Handler) beginPhoto(ctx context.Context) func() (uint64, error) {
	return func() (uint64, error) {
		var ticket uint64
		_, err := h.update(ctx, func(v *visit) error {
			if v.ctrl.Mode() == page.Showing {
				return errShowing
			}
			ticket = v.ctrl.Form().BeginPhotoLoad()
			return nil
		})
		return ticket, err
	}
}

// applyUpload moves a parsed body onto the form. It runs inside an update,
// so the ticket check and the store happen together.
func (h *Handler) applyUpload(ctx context.Context, v *visit, up upload) error {
	if v.ctrl.Mode() == page.Showing {
		return errShowing
	}
	if up.hasPhoto {
		if up.photoErr != nil {
			h.notifier(v.id, v.flash).Notify(ctx, photoRejected(up.photoErr))
		} else if err := v.ctrl.Form().CompletePhotoLoad(up.ticket, up.photo); err != nil {
			return err
		}
	}
	keepFields(v, up)
	return nil
}

// uploadFailed answers a body that could not be read. An oversized body is
// reported as a toast and the request ends like any other photo action.
func (h *Handler) uploadFailed(w http.ResponseWriter, r *http.Request, err error) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		v, uerr := h.update(r.Context(), func(v *visit) error {
			h.notifier(v.id, v.flash).Notify(r.Context(), photoRejected(form.ErrPhotoTooLarge))
			return nil
		})
		h.done(w, r, v, uerr)
	case errors.Is(err, errShowing), errors.Is(err, form.ErrStalePhoto):
		h.done(w, r, nil, err)
	case errors.Is(err, errNoSession):
		h.fail(w, "failed to load session", err)
	default:
		h.logger.Debug("parse form", zap.Error(err))
		http.Error(w, "failed to parse form", http.StatusBadRequest)
	}
}

// readUpload reads a multipart or urlencoded body. Multipart bodies are
// streamed: when the first non-empty file part arrives, begin is called
// before any photo bytes are read. A nil begin ignores files.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, begin func() (uint64, error)) (upload, error) {
	up := upload{fields: map[string]string{}}
	r.Body = http.MaxBytesReader(w, r.Body, h.photoLimit()+formOverhead)

	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return up, err
		}
		for _, name := range textFields {
			if vals, ok := r.PostForm[name]; ok && len(vals) > 0 {
				up.fields[name] = vals[0]
			}
		}
		return up, nil
	}
	if err != nil {
		return up, err
	}

	var photoField string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return up, nil
		}
		if err != nil {
			return up, err
		}
		name := part.FormName()

		if part.FileName() == "" {
			if isTextField(name) {
				val, err := io.ReadAll(io.LimitReader(part, maxFieldSize))
				if err != nil {
					return up, err
				}
				up.fields[name] = string(val)
			}
			continue
		}
		if begin == nil || (up.hasPhoto && photoRank(name) >= photoRank(photoField)) {
			continue
		}

		// empty file inputs count as no photo
		br := bufio.NewReader(part)
		if _, err := br.Peek(1); err == io.EOF {
			continue
		} else if err != nil {
			return up, err
		}

		if !up.hasPhoto {
			if up.ticket, err = begin(); err != nil {
				return up, err
			}
			up.hasPhoto = true
		}
		photoField = name
		up.photo, up.photoErr = form.ReadPhoto(r.Context(), br, part.Header.Get("Content-Type"), h.photoLimit())
		if up.photoErr != nil {
			h.logger.Info("photo rejected", zap.String("field", name), zap.Error(up.photoErr))
		}
		var tooBig *http.MaxBytesError
		if errors.As(up.photoErr, &tooBig) {
			return up, up.photoErr
		}
	}
}

func isTextField(name string) bool {
	for _, f := range textFields {
		if name == f {
			return true
		}
	}
	return false
}

// photoRank orders file fields: "photo" first, then a few common
// alternatives (case-insensitive), then anything else.
func photoRank(name string) int {
	if name == form.FieldPhoto {
		return 0
	}
	for _, alt := range photoFieldAlternatives {
		if strings.EqualFold(name, alt) {
			return 1
		}
	}
	return 2
}

// keepFields copies whatever text fields came along with a photo action so
// nothing typed so far is lost.
func keepFields(v *visit, up upload) {
	for _, name := range textFields {
		if val, ok := up.fields[name]; ok {
			v.ctrl.Form().SetField(name, val)
		}
	}
}

func (h *Handler) photoLimit() int64 {
	if h.maxPhotoBytes <= 0 {
		return form.DefaultMaxPhotoBytes
	}
	return h.maxPhotoBytes
}

func photoRejected(err error) notify.Notification {
	desc := "Please choose a PNG, JPEG, GIF or WebP image."
	if errors.Is(err, form.ErrPhotoTooLarge) {
		desc = "Please choose an image smaller than the upload limit."
	}
	return notify.Notification{
		Title:       "Photo rejected",
		Description: desc,
		Severity:    notify.SeverityDestructive,
	}
}
