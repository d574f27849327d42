package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"eligicert/internal/certificate"
	"eligicert/internal/config"
	"eligicert/internal/raster"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "eligicert",
		Short: "Security guard eligibility certificates",
		Long: `Collects an applicant's name, 10th and 12th marks and a photo,
classifies them into an eligibility tier and issues a downloadable
certificate image.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(renderCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// rasterCloser is a rasterizer with an optional shutdown step.
type rasterCloser interface {
	certificate.Rasterizer
	Close() error
}

type noClose struct{ certificate.Rasterizer }

func (noClose) Close() error { return nil }

func newRasterizer(cfg config.Config, logger *zap.Logger) (rasterCloser, error) {
	switch cfg.Rasterizer {
	case config.RasterChrome:
		return raster.NewChrome(raster.ChromeConfig{
			ControlURL: cfg.ChromeURL,
			Bin:        cfg.ChromeBin,
			Timeout:    cfg.RenderTimeout,
		}, logger), nil
	case config.RasterCanvas:
		c, err := raster.NewCanvas()
		if err != nil {
			return nil, fmt.Errorf("load certificate fonts: %w", err)
		}
		return noClose{c}, nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q (want %s or %s)", cfg.Rasterizer, config.RasterCanvas, config.RasterChrome)
	}
}
