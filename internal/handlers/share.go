package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"eligicert/internal/certificate"
	"eligicert/internal/notify"
	"eligicert/internal/page"
)

type shareReq struct {
	Target string `json:"target"`
}

// POST /share
// Accepts a form field or a JSON body naming the platform. Nothing is
// actually shared; the user gets an acknowledgement toast.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	v, err := h.load(r.Context())
	if err != nil {
		h.fail(w, "failed to load session", err)
		return
	}
	if v.ctrl.Mode() != page.Showing {
		http.Error(w, "no certificate to share", http.StatusNotFound)
		return
	}

	var target string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req shareReq
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		target = req.Target
	} else {
		target = r.FormValue("target")
	}

	pending := notify.NewFlash(nil)
	ack := v.ctrl.Renderer(certificate.Options{Notifier: h.notifier(v.id, pending)}).Share(r.Context(), target)
	if _, err := h.keep(r.Context(), pending); err != nil {
		h.fail(w, "failed to save session", err)
		return
	}
	if wantsJSON(r) {
		writeJSONResp(w, http.StatusOK, ack)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
