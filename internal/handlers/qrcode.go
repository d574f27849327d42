package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"eligicert/internal/certificate"
	"eligicert/internal/download"
	"eligicert/internal/middleware"
	"eligicert/internal/notify"
	"eligicert/internal/page"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// GET /certificate.png
// Exports the shown certificate at 2x and sends it as an attachment. A failed
// export redirects back to the page with an error toast so the user can retry.
// Once the image has started going out, a failure is only logged.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	v, err := h.load(r.Context())
	if err != nil {
		h.fail(w, "failed to load session", err)
		return
	}
	if v.ctrl.Mode() != page.Showing {
		http.Error(w, "no certificate to download", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.renderTimeout)
	defer cancel()

	pending := notify.NewFlash(nil)
	renderer := v.ctrl.Renderer(certificate.Options{Notifier: h.notifier(v.id, pending)})
	derr := renderer.TriggerDownload(ctx, download.HTTP{W: w})
	v, err = h.keep(r.Context(), pending)

	var rf *certificate.RenderFailure
	switch {
	case derr == nil:
		if err != nil {
			h.logger.Warn("save after download", zap.Error(err))
		}
	case errors.As(derr, &rf):
		h.logger.Error("certificate export failed", zap.String("session", middleware.SessionID(r.Context())), zap.Error(derr))
		if err != nil {
			h.fail(w, "failed to save session", err)
			return
		}
		h.respond(w, r, v)
	default:
		// status and headers are already out
		h.logger.Error("certificate response failed", zap.String("session", middleware.SessionID(r.Context())), zap.Error(derr))
	}
}

// GET /certificate/qrcode
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	v, err := h.load(r.Context())
	if err != nil {
		h.fail(w, "failed to load session", err)
		return
	}
	if v.ctrl.Mode() != page.Showing {
		http.Error(w, "no certificate", http.StatusNotFound)
		return
	}

	size := defaultQRSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > maxQRSize {
			http.Error(w, "invalid size", http.StatusBadRequest)
			return
		}
		size = n
	}

	png, err := v.ctrl.Renderer(certificate.Options{}).QRCode(size)
	if err != nil {
		h.fail(w, "failed to generate QR code", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
