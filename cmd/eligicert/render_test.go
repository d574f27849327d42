package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writePhoto(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 50))
	for x := 0; x < 40; x++ {
		for y := 0; y < 50; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(t.TempDir(), "me.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestRender_SavesCertificate(t *testing.T) {
	out := t.TempDir()
	saved, err := render(context.Background(), renderOpts{
		name:       "Asha  Rao",
		tenth:      "85",
		twelfth:    "90",
		photo:      writePhoto(t),
		out:        out,
		rasterizer: "canvas",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "security-guard-certificate-asha-rao.png"), saved)

	f, err := os.Open(saved)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 1600, cfg.Width)
	assert.Equal(t, 1280, cfg.Height)
}

func TestRender_InvalidApplication(t *testing.T) {
	_, err := render(context.Background(), renderOpts{
		name:       "Asha",
		tenth:      "101",
		out:        t.TempDir(),
		rasterizer: "canvas",
	}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `tenthMarks: "Marks should be between 0 and 100"`)
	assert.Contains(t, err.Error(), `twelfthMarks: "12th marks are required"`)
	assert.Contains(t, err.Error(), `photo: "Photo is required"`)
}

func TestRender_MissingPhotoFile(t *testing.T) {
	_, err := render(context.Background(), renderOpts{
		name:       "Asha",
		tenth:      "70",
		twelfth:    "70",
		photo:      filepath.Join(t.TempDir(), "nope.png"),
		out:        t.TempDir(),
		rasterizer: "canvas",
	}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "open photo")
}

func TestRender_UnknownRasterizer(t *testing.T) {
	out := t.TempDir()
	_, err := render(context.Background(), renderOpts{
		name:       "Asha",
		tenth:      "70",
		twelfth:    "70",
		photo:      writePhoto(t),
		out:        out,
		rasterizer: "bogus",
	}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, `unknown rasterizer "bogus"`)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
