package handlers

import (
	"bytes"
	"net/http"

	"eligicert/internal/certificate"
	"eligicert/internal/notify"
	"eligicert/internal/page"
	"eligicert/internal/web"
)

// GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	var toasts []notify.Notification
	v, err := h.update(r.Context(), func(v *visit) error {
		toasts = v.flash.Drain()
		return nil
	})
	if err != nil {
		h.fail(w, "failed to load session", err)
		return
	}

	var p web.Page
	if v.ctrl.Mode() == page.Showing {
		p, err = web.ShowingPage(v.ctrl.Renderer(certificate.Options{}).Layout(), toasts)
		if err != nil {
			h.fail(w, "failed to build certificate", err)
			return
		}
	} else {
		p = web.CollectingPage(v.ctrl.Form().Snapshot(), toasts)
	}

	var buf bytes.Buffer
	if err := web.RenderPage(&buf, p); err != nil {
		h.fail(w, "failed to render page", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// POST /back
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	v, err := h.update(r.Context(), func(v *visit) error {
		v.ctrl.Back()
		return nil
	})
	h.done(w, r, v, err)
}
