package page

import (
	"time"

	"eligicert/internal/certificate"
	"eligicert/internal/form"
	"eligicert/internal/models"
)

type Mode string

const (
	Collecting Mode = "collecting"
	Showing    Mode = "showing"
)

// Deps are the collaborators handed to every certificate renderer.
type Deps struct {
	Rasterizer    certificate.Rasterizer
	MaxPhotoBytes int64
	Now           func() time.Time
	NewID         func() string
}

// Controller is the page state machine: Collecting until a submission
// succeeds, then Showing that submission until the user goes back.
type Controller struct {
	deps Deps
	form *form.State

	record   *models.Submission
	certID   string
	issuedAt time.Time
}

func New(deps Deps) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = certificate.NewID
	}
	return &Controller{deps: deps, form: form.New(deps.MaxPhotoBytes)}
}

func (c *Controller) Mode() Mode {
	if c.record != nil {
		return Showing
	}
	return Collecting
}

// Form is the form being filled in. It is only meaningful while Collecting.
func (c *Controller) Form() *form.State { return c.form }

// Record returns the submission being shown.
func (c *Controller) Record() (models.Submission, bool) {
	if c.record == nil {
		return models.Submission{}, false
	}
	return *c.record, true
}

// Submit moves to Showing if the form validates. While Showing it is a no-op
// that reports false.
func (c *Controller) Submit() bool {
	if c.record != nil {
		return false
	}
	sub, ok := c.form.TrySubmit()
	if !ok {
		return false
	}
	c.record = &sub
	c.certID = c.deps.NewID()
	c.issuedAt = c.deps.Now()
	return true
}

// Back discards the shown submission and starts over with an empty form.
// Photo loads begun before Back are stale afterwards.
func (c *Controller) Back() {
	c.record = nil
	c.certID = ""
	c.issuedAt = time.Time{}
	c.form.Reset()
}

// Renderer returns the certificate renderer for the current submission, or
// nil while Collecting. opts.Rasterizer defaults to the controller's.
func (c *Controller) Renderer(opts certificate.Options) *certificate.Renderer {
	if c.record == nil {
		return nil
	}
	opts.ID = c.certID
	opts.IssuedAt = c.issuedAt
	if opts.Rasterizer == nil {
		opts.Rasterizer = c.deps.Rasterizer
	}
	return certificate.NewRenderer(*c.record, opts)
}

// Snapshot is the serialisable page state.
type Snapshot struct {
	Form          form.Snapshot      `json:"form"`
	Record        *models.Submission `json:"record,omitempty"`
	CertificateID string             `json:"certificate_id,omitempty"`
	IssuedAt      time.Time          `json:"issued_at,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Form:          c.form.Snapshot(),
		CertificateID: c.certID,
		IssuedAt:      c.issuedAt,
	}
	if c.record != nil {
		rec := *c.record
		s.Record = &rec
	}
	return s
}

func Restore(s Snapshot, deps Deps) *Controller {
	c := New(deps)
	c.form = form.Restore(s.Form, deps.MaxPhotoBytes)
	if s.Record != nil {
		rec := *s.Record
		c.record = &rec
		c.certID = s.CertificateID
		c.issuedAt = s.IssuedAt
	}
	return c
}
