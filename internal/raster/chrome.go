package raster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"eligicert/internal/certificate"
	"eligicert/internal/web"
)

// ChromeConfig configures the headless browser used for rasterizing.
type ChromeConfig struct {
	// ControlURL connects to an already running Chrome. When empty a local
	// headless Chrome is launched, from Bin if set.
	ControlURL string
	Bin        string
	Timeout    time.Duration
}

// Chrome renders the certificate HTML in headless Chrome and screenshots it.
type Chrome struct {
	cfg    ChromeConfig
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

func NewChrome(cfg ChromeConfig, logger *zap.Logger) *Chrome {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Chrome{cfg: cfg, logger: logger}
}

// connect returns a live browser, reconnecting if the previous one died.
func (c *Chrome) connect() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		if _, err := c.browser.Version(); err == nil {
			return c.browser, nil
		}
		c.logger.Warn("stale browser connection, reconnecting")
		_ = c.browser.Close()
		c.browser = nil
	}

	controlURL := c.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(true)
		if c.cfg.Bin != "" {
			l = l.Bin(c.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	c.logger.Info("chrome connected", zap.String("control_url", controlURL))
	c.browser = b
	return b, nil
}

// Rasterize implements certificate.Rasterizer.
func (c *Chrome) Rasterize(ctx context.Context, l certificate.Layout, scale float64) (certificate.ImageAsset, error) {
	doc, err := web.CertificateDocument(l)
	if err != nil {
		return certificate.ImageAsset{}, err
	}
	b, err := c.connect()
	if err != nil {
		return certificate.ImageAsset{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return certificate.ImageAsset{}, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             baseWidth + 40,
		Height:            baseHeight + 40,
		DeviceScaleFactor: scale,
	}); err != nil {
		return certificate.ImageAsset{}, fmt.Errorf("set viewport: %w", err)
	}
	if err := page.SetDocumentContent(doc); err != nil {
		return certificate.ImageAsset{}, fmt.Errorf("load certificate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return certificate.ImageAsset{}, fmt.Errorf("wait load: %w", err)
	}

	el, err := page.Element("#certificate")
	if err != nil {
		return certificate.ImageAsset{}, fmt.Errorf("find certificate: %w", err)
	}
	data, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return certificate.ImageAsset{}, fmt.Errorf("screenshot: %w", err)
	}
	if len(data) == 0 {
		return certificate.ImageAsset{}, errors.New("screenshot was empty")
	}

	shape, err := el.Shape()
	var w, h int
	if err == nil {
		if box := shape.Box(); box != nil {
			w, h = int(box.Width*scale), int(box.Height*scale)
		}
	}
	return certificate.ImageAsset{ContentType: "image/png", Data: data, Width: w, Height: h}, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.browser = nil
	return err
}
