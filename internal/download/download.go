package download

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"eligicert/internal/certificate"
)

// Dir saves offered images into a directory. Files are written to a temp
// name first and renamed, so a failed write leaves nothing behind.
type Dir struct {
	Path string

	// Saved is set to the final path of the last offered file.
	Saved string
}

func (d *Dir) Offer(_ context.Context, asset certificate.ImageAsset, filename string) error {
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(d.Path, ".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(asset.Data); err != nil {
		tmp.Close()
		return fmt.Errorf("write certificate: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close certificate: %w", err)
	}

	final := filepath.Join(d.Path, filepath.Base(filename))
	if err := os.Rename(tmp.Name(), final); err != nil {
		return fmt.Errorf("save certificate: %w", err)
	}
	d.Saved = final
	return nil
}

// HTTP offers an image as an attachment on a response. Nothing is written
// to the response until Offer is called.
type HTTP struct {
	W http.ResponseWriter
}

func (h HTTP) Offer(_ context.Context, asset certificate.ImageAsset, filename string) error {
	h.W.Header().Set("Content-Type", asset.ContentType)
	h.W.Header().Set("Content-Length", strconv.Itoa(len(asset.Data)))
	h.W.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	h.W.WriteHeader(http.StatusOK)
	_, err := h.W.Write(asset.Data)
	return err
}
