package certificate

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"eligicert/internal/eligibility"
	"eligicert/internal/models"
	"eligicert/internal/notify"
)

// ExportScale is the upscaling factor used for print-quality exports.
const ExportScale = 2

const filePrefix = "security-guard-certificate-"

// ImageAsset is an encoded raster image.
type ImageAsset struct {
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// Rasterizer turns a certificate layout into an encoded image.
type Rasterizer interface {
	Rasterize(ctx context.Context, l Layout, scale float64) (ImageAsset, error)
}

// Saver offers a finished image to the user under a suggested file name.
// Callers get no confirmation that the user actually kept it.
type Saver interface {
	Offer(ctx context.Context, asset ImageAsset, filename string) error
}

// RenderFailure reports that the rasterizer could not produce an image.
// The renderer is left untouched, so the export can simply be retried.
type RenderFailure struct {
	Err error
}

func (e *RenderFailure) Error() string {
	return fmt.Sprintf("render certificate: %v", e.Err)
}

func (e *RenderFailure) Unwrap() error { return e.Err }

type Options struct {
	// ID is the certificate identifier. NewID is used when empty.
	ID       string
	IssuedAt time.Time

	Rasterizer Rasterizer
	Notifier   notify.Notifier
}

// Renderer composes the certificate for one submission.
type Renderer struct {
	sub     models.Submission
	outcome eligibility.Outcome
	layout  Layout

	raster   Rasterizer
	notifier notify.Notifier
}

func NewRenderer(sub models.Submission, opts Options) *Renderer {
	if opts.ID == "" {
		opts.ID = NewID()
	}
	if opts.IssuedAt.IsZero() {
		opts.IssuedAt = time.Now()
	}
	outcome := eligibility.Classify(sub.TenthMarks, sub.TwelfthMarks)
	return &Renderer{
		sub:      sub,
		outcome:  outcome,
		layout:   compose(sub, outcome, opts.ID, opts.IssuedAt),
		raster:   opts.Rasterizer,
		notifier: opts.Notifier,
	}
}

func (r *Renderer) Submission() models.Submission { return r.sub }
func (r *Renderer) Outcome() eligibility.Outcome  { return r.outcome }
func (r *Renderer) Layout() Layout                { return r.layout }

// QRCode returns the layout's QR payload as a PNG of the given size.
func (r *Renderer) QRCode(size int) ([]byte, error) {
	return qrcode.Encode(r.layout.QRPayload, qrcode.Medium, size)
}

// ExportAsImage rasterizes the layout at ExportScale. Every rasterizer error,
// including a panic, comes back as *RenderFailure.
func (r *Renderer) ExportAsImage(ctx context.Context) (asset ImageAsset, err error) {
	if r.raster == nil {
		return ImageAsset{}, &RenderFailure{Err: fmt.Errorf("no rasterizer configured")}
	}
	defer func() {
		if p := recover(); p != nil {
			asset, err = ImageAsset{}, &RenderFailure{Err: fmt.Errorf("rasterizer panic: %v", p)}
		}
	}()

	asset, err = r.raster.Rasterize(ctx, r.layout, ExportScale)
	if err != nil {
		return ImageAsset{}, &RenderFailure{Err: err}
	}
	if len(asset.Data) == 0 {
		return ImageAsset{}, &RenderFailure{Err: fmt.Errorf("rasterizer returned an empty image")}
	}
	return asset, nil
}

// TriggerDownload exports the certificate and offers it to the saver. The
// outcome is reported through the notifier; on failure nothing is offered.
func (r *Renderer) TriggerDownload(ctx context.Context, saver Saver) error {
	asset, err := r.ExportAsImage(ctx)
	if err == nil {
		err = saver.Offer(ctx, asset, FileName(r.sub.Name))
	}
	if err != nil {
		r.notify(ctx, notify.Notification{
			Title:       "Error",
			Description: "Failed to download certificate. Please try again.",
			Severity:    notify.SeverityDestructive,
		})
		return err
	}

	r.notify(ctx, notify.Notification{
		Title:       "Success!",
		Description: "Certificate downloaded successfully!",
		Severity:    notify.SeverityDefault,
	})
	return nil
}

func (r *Renderer) notify(ctx context.Context, n notify.Notification) {
	if r.notifier != nil {
		r.notifier.Notify(ctx, n)
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// FileName derives the download name from the applicant's name.
func FileName(name string) string {
	return filePrefix + strings.ToLower(whitespace.ReplaceAllString(name, "-")) + ".png"
}

// NewID returns a decorative certificate id. It is random and carries no
// uniqueness guarantee.
func NewID() string {
	return fmt.Sprintf("SEC-%04d", rand.Intn(10000))
}
