package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"eligicert/internal/certificate"
	"eligicert/internal/form"
	"eligicert/internal/middleware"
	"eligicert/internal/notify"
	"eligicert/internal/page"
	"eligicert/internal/session"
)

var (
	errNoSession = errors.New("request has no session")
	// errShowing aborts form changes that arrive after a certificate was issued.
	errShowing = errors.New("certificate already shown")
)

// Handler serves the application page and its actions. Every change to a
// visitor's page state is one atomic update of their session.
type Handler struct {
	store         session.Store
	deps          page.Deps
	logger        *zap.Logger
	maxPhotoBytes int64
	renderTimeout time.Duration
}

type Options struct {
	Store         session.Store
	Rasterizer    certificate.Rasterizer
	Logger        *zap.Logger
	MaxPhotoBytes int64
	RenderTimeout time.Duration

	// Now and NewID override the clock and certificate ids, for tests.
	Now   func() time.Time
	NewID func() string
}

func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RenderTimeout == 0 {
		opts.RenderTimeout = 30 * time.Second
	}
	return &Handler{
		store: opts.Store,
		deps: page.Deps{
			Rasterizer:    opts.Rasterizer,
			MaxPhotoBytes: opts.MaxPhotoBytes,
			Now:           opts.Now,
			NewID:         opts.NewID,
		},
		logger:        opts.Logger,
		maxPhotoBytes: opts.MaxPhotoBytes,
		renderTimeout: opts.RenderTimeout,
	}
}

// visit is one request's view of a session.
type visit struct {
	id    string
	ctrl  *page.Controller
	flash *notify.Flash
}

func (h *Handler) restore(id string, st session.State) *visit {
	return &visit{
		id:    id,
		ctrl:  page.Restore(st.Page, h.deps),
		flash: notify.NewFlash(st.Toasts),
	}
}

func (v *visit) state() session.State {
	return session.State{Page: v.ctrl.Snapshot(), Toasts: v.flash.Pending()}
}

func (h *Handler) notifier(id string, flash *notify.Flash) notify.Notifier {
	return notify.Multi{flash, notify.Log{Logger: h.logger.With(zap.String("session", id))}}
}

// load reads the session without changing it.
func (h *Handler) load(ctx context.Context) (*visit, error) {
	id := middleware.SessionID(ctx)
	if id == "" {
		return nil, errNoSession
	}
	st, err := h.store.Load(ctx, id)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return h.restore(id, st), nil
}

// update applies fn to the freshest session state and stores the result in
// one step. If fn fails nothing is stored. fn may run more than once.
func (h *Handler) update(ctx context.Context, fn func(v *visit) error) (*visit, error) {
	id := middleware.SessionID(ctx)
	if id == "" {
		return nil, errNoSession
	}
	var v *visit
	_, err := h.store.Update(ctx, id, func(st *session.State) error {
		v = h.restore(id, *st)
		if err := fn(v); err != nil {
			return err
		}
		*st = v.state()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// keep appends notifications collected outside an update to the session.
func (h *Handler) keep(ctx context.Context, pending *notify.Flash) (*visit, error) {
	return h.update(ctx, func(v *visit) error {
		for _, n := range pending.Pending() {
			v.flash.Notify(ctx, n)
		}
		return nil
	})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

// respond sends the browser back to the page, or answers with the page
// status for JSON clients.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, v *visit) {
	if wantsJSON(r) {
		writeJSONResp(w, http.StatusOK, statusOf(v))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// done finishes a request after its update. A change dropped because a newer
// request already decided the session is answered with the current state.
func (h *Handler) done(w http.ResponseWriter, r *http.Request, v *visit, err error) {
	switch {
	case err == nil:
		h.respond(w, r, v)
	case errors.Is(err, form.ErrStalePhoto), errors.Is(err, errShowing):
		h.logger.Debug("change superseded",
			zap.String("session", middleware.SessionID(r.Context())),
			zap.Error(err),
		)
		cur, lerr := h.load(r.Context())
		if lerr != nil {
			h.fail(w, "failed to load session", lerr)
			return
		}
		h.respond(w, r, cur)
	default:
		h.fail(w, "failed to save session", err)
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSONResp(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
