package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"eligicert/internal/handlers"
	"eligicert/internal/middleware"
	"eligicert/internal/session"
)

type Config struct {
	Handler    *handlers.Handler
	Tokens     *session.Tokens
	SessionTTL time.Duration
	BaseURL    string
	Logger     *zap.Logger
}

func RegisterRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := cfg.Handler

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(middleware.Origin(cfg.BaseURL)))
	r.Use(middleware.LoggingMiddleware(logger))

	r.Get("/healthz", handlers.Healthz)

	r.Group(func(r chi.Router) {
		secure := strings.HasPrefix(cfg.BaseURL, "https://")
		r.Use(middleware.SessionMiddleware(cfg.Tokens, cfg.SessionTTL, secure, logger))

		r.Get("/", h.Index)
		r.Post("/apply", h.Apply)
		r.Post("/photo", h.UploadPhoto)
		r.Post("/photo/clear", h.ClearPhoto)
		r.Post("/back", h.Back)
		r.Get("/certificate.png", h.Download)
		r.Get("/certificate/qrcode", h.QRCode)
		r.Post("/share", h.Share)
		r.Get("/api/v1/session", h.SessionStatus)
	})
	return r
}
