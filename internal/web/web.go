package web

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"

	"github.com/skip2/go-qrcode"

	"eligicert/internal/certificate"
	"eligicert/internal/form"
	"eligicert/internal/notify"
)

//go:embed templates/*.html
var files embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	// safeURL marks a data: URL built by this package as trusted.
	"safeURL": func(s string) template.URL { return template.URL(s) },
}).ParseFS(files, "templates/*.html"))

var (
	benefits       = []string{"Great Salary", "Free Whistle", "Fancy Uniform", "Power Position"}
	qualifications = []string{
		"Must be able to stand for 12 hours straight",
		"Expert at saying \"Bill hai?\"",
		"Can give a stern look to anyone carrying a bag",
		"10th and 12th marks (any percentage accepted)",
	}
)

// CertificateView is a layout plus the QR code as an inline image.
type CertificateView struct {
	certificate.Layout
	QR template.URL
}

func NewCertificateView(l certificate.Layout) (CertificateView, error) {
	v := CertificateView{Layout: l}
	if l.QRPayload == "" {
		return v, nil
	}
	png, err := qrcode.Encode(l.QRPayload, qrcode.Medium, 160)
	if err != nil {
		return v, fmt.Errorf("qr code: %w", err)
	}
	v.QR = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	return v, nil
}

// Page is the data behind the single application page.
type Page struct {
	Showing     bool
	Certificate CertificateView

	Form     form.Snapshot
	Errors   map[string]string
	PhotoURL template.URL

	Benefits       []string
	Qualifications []string
	Toasts         []notify.Notification
}

// CollectingPage builds the form view.
func CollectingPage(snap form.Snapshot, toasts []notify.Notification) Page {
	p := Page{
		Form:           snap,
		Errors:         snap.Errors,
		Benefits:       benefits,
		Qualifications: qualifications,
		Toasts:         toasts,
	}
	if p.Errors == nil {
		p.Errors = map[string]string{}
	}
	if snap.Photo != nil {
		p.PhotoURL = template.URL(snap.Photo.DataURL())
	}
	return p
}

// ShowingPage builds the certificate view.
func ShowingPage(l certificate.Layout, toasts []notify.Notification) (Page, error) {
	view, err := NewCertificateView(l)
	if err != nil {
		return Page{}, err
	}
	return Page{Showing: true, Certificate: view, Errors: map[string]string{}, Toasts: toasts}, nil
}

func RenderPage(w io.Writer, p Page) error {
	return templates.ExecuteTemplate(w, "page", p)
}

// CertificateDocument returns a standalone HTML document holding only the
// certificate, for rasterizing in a browser.
func CertificateDocument(l certificate.Layout) (string, error) {
	view, err := NewCertificateView(l)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "document", view); err != nil {
		return "", fmt.Errorf("render certificate document: %w", err)
	}
	return buf.String(), nil
}
