// Package web exposes the headshot session state machine as a JSON API and
// serves the single-page client that drives it.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"

	"github.com/fpang/proshot/internal/session"
)

// DefaultMaxWait caps long-poll requests.
const DefaultMaxWait = 30 * time.Second

// Options configures a Server.
type Options struct {
	// Picker enables POST /api/sessions/{id}/pick. Nil disables it.
	Picker Picker
	// MaxWait caps the wait parameter of long-poll requests.
	MaxWait time.Duration
	// AwaitGeneration makes POST .../generate hold the response until the
	// generation outcome is applied or MaxWait elapses. Lambda sets this
	// because the runtime freezes between invocations.
	AwaitGeneration bool
}

// Server holds the HTTP handlers for one session store.
type Server struct {
	store *session.Store
	opts  Options
	now   func() time.Time
}

// New creates a Server backed by store.
func New(store *session.Store, opts Options) *Server {
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	return &Server{store: store, opts: opts, now: time.Now}
}

// Handler returns the full router with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		withObservability,
		middleware.Recoverer,
		withCORS,
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/styles", s.handleStyles)
		r.Post("/sessions", s.handleCreateSession)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(s.withSession)
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/image", s.handleUploadImage)
			r.Post("/pick", s.handlePickImage)
			r.Put("/style", s.handleChooseStyle)
			r.Put("/instruction", s.handleEditInstruction)
			r.Post("/generate", s.handleGenerate)
			r.Post("/another", s.handleTryAnother)
			r.Post("/reset", s.handleReset)
			r.Get("/download", s.handleDownload)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpError(w, http.StatusNotFound, "not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		})
	})

	r.With(withSecurityHeaders).Get("/*", s.handleStatic)

	return gzhttp.GzipHandler(r)
}

type machineKey struct{}

// withSession resolves {id} to a live Machine, rejecting malformed ids
// before the store is consulted.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
			httpError(w, http.StatusBadRequest, "invalid session id: must be a UUID")
			return
		}
		m, ok := s.store.Get(id)
		if !ok {
			httpError(w, http.StatusNotFound, "session not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), machineKey{}, m)))
	})
}

func machineFrom(r *http.Request) *session.Machine {
	return r.Context().Value(machineKey{}).(*session.Machine)
}
