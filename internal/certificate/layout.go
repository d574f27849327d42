package certificate

import (
	"fmt"
	"strconv"
	"time"

	"eligicert/internal/eligibility"
	"eligicert/internal/models"
)

const issueDateLayout = "January 2, 2006"

// Layout is everything printed on a certificate, already in display form.
type Layout struct {
	Heading       string
	CertificateID string
	Lead          string
	Name          string
	Photo         *models.Photo

	Label    string
	Tier     eligibility.Tier
	Eligible bool
	Display  eligibility.Display
	Message  string

	TenthMarks   string
	TwelfthMarks string

	IssuedOn   string
	Signature  string
	Institute  string
	Disclaimer string

	QRPayload string
}

func compose(sub models.Submission, outcome eligibility.Outcome, id string, issued time.Time) Layout {
	d := outcome.Display()
	return Layout{
		Heading:       d.Title,
		CertificateID: id,
		Lead:          "This is to certify that",
		Name:          sub.Name,
		Photo:         sub.Photo,
		Label:         outcome.Label(),
		Tier:          outcome.Tier(),
		Eligible:      outcome.Eligible(),
		Display:       d,
		Message:       outcome.Message(),
		TenthMarks:    formatMarks(sub.TenthMarks),
		TwelfthMarks:  formatMarks(sub.TwelfthMarks),
		IssuedOn:      issued.Format(issueDateLayout),
		Signature:     "Director's Signature",
		Institute:     "Meme Security Training Institute",
		Disclaimer:    "* This certificate holds absolutely no legal value whatsoever",
		QRPayload:     fmt.Sprintf("%s | %s | %s", id, sub.Name, outcome.Label()),
	}
}

func formatMarks(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}
