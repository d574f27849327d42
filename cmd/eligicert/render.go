package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eligicert/internal/certificate"
	"eligicert/internal/config"
	"eligicert/internal/download"
	"eligicert/internal/form"
	"eligicert/internal/notify"
	"eligicert/internal/page"
)

type renderOpts struct {
	name       string
	tenth      string
	twelfth    string
	photo      string
	out        string
	rasterizer string
	chromeBin  string
}

func renderCmd() *cobra.Command {
	var o renderOpts

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Issue one certificate and save it as a PNG",
		Long: `Runs a single application through the form and writes the
certificate image into the output directory.

Example:
  eligicert render --name "Asha Rao" --tenth 85 --twelfth 90 --photo me.jpg --out ./certs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger("info")
			if err != nil {
				return err
			}
			defer logger.Sync()

			saved, err := render(cmd.Context(), o, logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), saved)
			return nil
		},
	}

	cmd.Flags().StringVar(&o.name, "name", "", "applicant name")
	cmd.Flags().StringVar(&o.tenth, "tenth", "", "10th marks (0-100)")
	cmd.Flags().StringVar(&o.twelfth, "twelfth", "", "12th marks (0-100)")
	cmd.Flags().StringVar(&o.photo, "photo", "", "path to the applicant photo")
	cmd.Flags().StringVar(&o.out, "out", ".", "output directory")
	cmd.Flags().StringVar(&o.rasterizer, "rasterizer", config.RasterCanvas, "canvas or chrome")
	cmd.Flags().StringVar(&o.chromeBin, "chrome-bin", "", "Chrome binary for the chrome rasterizer")
	return cmd
}

// render submits the options through the page controller and saves the
// exported certificate. It returns the saved path.
func render(ctx context.Context, o renderOpts, logger *zap.Logger) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Config{Rasterizer: o.rasterizer, ChromeBin: o.chromeBin}
	rast, err := newRasterizer(cfg, logger)
	if err != nil {
		return "", err
	}
	defer rast.Close()

	ctrl := page.New(page.Deps{Rasterizer: rast})
	f := ctrl.Form()
	f.SetField(form.FieldName, o.name)
	f.SetField(form.FieldTenthMarks, o.tenth)
	f.SetField(form.FieldTwelfthMarks, o.twelfth)
	if o.photo != "" {
		if err := loadPhotoFile(ctx, f, o.photo); err != nil {
			return "", err
		}
	}

	if !ctrl.Submit() {
		return "", invalidForm(f.Errors())
	}

	saver := &download.Dir{Path: o.out}
	r := ctrl.Renderer(certificate.Options{Notifier: notify.Log{Logger: logger}})
	logger.Info("issuing certificate",
		zap.String("id", r.Layout().CertificateID),
		zap.String("label", r.Outcome().Label()),
	)
	if err := r.TriggerDownload(ctx, saver); err != nil {
		return "", err
	}
	return saver.Saved, nil
}

func loadPhotoFile(ctx context.Context, f *form.State, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open photo: %w", err)
	}
	defer file.Close()
	return f.LoadPhoto(ctx, file, "")
}

func invalidForm(errs map[string]string) error {
	fields := make([]string, 0, len(errs))
	for k := range errs {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	msg := "invalid application:"
	for _, k := range fields {
		msg += " " + k + ": " + strconv.Quote(errs[k])
	}
	return errors.New(msg)
}
