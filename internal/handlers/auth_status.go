package handlers

import (
	"net/http"

	"eligicert/internal/certificate"
	"eligicert/internal/notify"
	"eligicert/internal/page"
)

type certificateStatus struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Label    string `json:"label"`
	Tier     string `json:"tier"`
	Eligible bool   `json:"eligible"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	IssuedOn string `json:"issued_on"`
	FileName string `json:"file_name"`
}

type sessionStatus struct {
	Mode        page.Mode             `json:"mode"`
	Errors      map[string]string     `json:"errors,omitempty"`
	HasPhoto    bool                  `json:"has_photo"`
	Certificate *certificateStatus    `json:"certificate,omitempty"`
	Toasts      []notify.Notification `json:"toasts,omitempty"`
}

func statusOf(v *visit) sessionStatus {
	st := sessionStatus{
		Mode:   v.ctrl.Mode(),
		Toasts: v.flash.Pending(),
	}
	if st.Mode == page.Collecting {
		st.Errors = v.ctrl.Form().Errors()
		st.HasPhoto = v.ctrl.Form().Photo() != nil
		return st
	}

	l := v.ctrl.Renderer(certificate.Options{}).Layout()
	st.HasPhoto = l.Photo != nil
	st.Certificate = &certificateStatus{
		ID:       l.CertificateID,
		Name:     l.Name,
		Label:    l.Label,
		Tier:     l.Tier.String(),
		Eligible: l.Eligible,
		Title:    l.Display.Title,
		Message:  l.Message,
		IssuedOn: l.IssuedOn,
		FileName: certificate.FileName(l.Name),
	}
	return st
}

// GET /api/v1/session
// Reports the page state without draining pending toasts.
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	v, err := h.load(r.Context())
	if err != nil {
		h.fail(w, "failed to load session", err)
		return
	}
	writeJSONResp(w, http.StatusOK, statusOf(v))
}

// GET /healthz
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSONResp(w, http.StatusOK, map[string]string{"status": "ok"})
}
