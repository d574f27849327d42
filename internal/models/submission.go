package models

import "encoding/base64"

// Photo is an uploaded applicant photo, kept as the encoded bytes the
// browser sent.
type Photo struct {
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// DataURL returns the photo as a data: URL for embedding in markup.
func (p *Photo) DataURL() string {
	if p == nil || len(p.Data) == 0 {
		return ""
	}
	return "data:" + p.ContentType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// Submission is the validated snapshot of the application form. It is built
// once per successful submit and never modified afterwards.
type Submission struct {
	Name         string  `json:"name"`
	TenthMarks   float64 `json:"tenth_marks"`
	TwelfthMarks float64 `json:"twelfth_marks"`
	Photo        *Photo  `json:"photo"`
}
