package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eligicert/internal/config"
	"eligicert/internal/db"
	"eligicert/internal/handlers"
	"eligicert/internal/router"
	"eligicert/internal/session"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the certificate web app",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "listen port (overrides PORT)")
	return cmd
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (session.Store, func() error, error) {
	if cfg.SessionStore == config.StoreRedis {
		client, err := db.ConnectRedis(ctx, db.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		rs := session.NewRedisStore(client, cfg.SessionTTL)
		return rs, rs.Close, nil
	}
	return session.NewMemoryStore(cfg.SessionTTL), func() error { return nil }, nil
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.GeneratedSecret {
		logger.Warn("SESSION_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer closeStore()

	rast, err := newRasterizer(cfg, logger)
	if err != nil {
		return err
	}
	defer rast.Close()

	h := handlers.New(handlers.Options{
		Store:         store,
		Rasterizer:    rast,
		Logger:        logger,
		MaxPhotoBytes: cfg.MaxPhotoBytes,
		RenderTimeout: cfg.RenderTimeout,
	})
	mux := router.RegisterRouter(router.Config{
		Handler:    h,
		Tokens:     session.NewTokens(cfg.SessionSecret, cfg.SessionTTL),
		SessionTTL: cfg.SessionTTL,
		BaseURL:    cfg.BaseURL,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.Int("port", cfg.Port),
			zap.String("store", cfg.SessionStore),
			zap.String("rasterizer", cfg.Rasterizer),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
