// Package api implements the HTTP layer for the internship certificate
// service. Handlers are methods on *Server. Each handler file is responsible
// for one resource group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/athenura/internhub-backend/internal/db"
	"github.com/athenura/internhub-backend/internal/render"
	"github.com/athenura/internhub-backend/internal/workflow"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string
}

// Transitioner is the slice of the workflow the HTTP layer drives. Tests
// inject a stub.
type Transitioner interface {
	Transition(ctx context.Context, submissionID uuid.UUID, target db.CertificateStatus, reason string) (workflow.Snapshot, error)
}

// Renderer re-renders an issued certificate for direct download.
type Renderer interface {
	Render(in render.Input) ([]byte, error)
}

// Server holds all shared dependencies. Each handler file attaches methods
// to this type and uses only the fields it needs.
type Server struct {
	// q handles all single-query reads. Injected directly — no repo wrapper.
	q db.Querier

	// workflow runs certificate status transitions.
	workflow Transitioner

	// renderer serves the on-demand certificate download.
	renderer Renderer

	validate *validator.Validate
	cfg      Config
	logger   *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	q db.Querier,
	wf Transitioner,
	renderer Renderer,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		q:        q,
		workflow: wf,
		renderer: renderer,
		validate: validator.New(),
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))

	// ── Health ───────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API ──────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		// Review-team feedback views and actions.
		r.Get("/feedback", s.handleListFeedback)
		r.Route("/feedback/{feedbackID}", func(r chi.Router) {
			r.Patch("/certificate-status", s.handleUpdateCertificateStatus)
			r.Get("/certificate", s.handleDownloadCertificate)
			r.Delete("/", s.handleDeleteFeedback)
		})

		// Public verification portal — no auth, lookup by unique ID.
		r.Post("/intern/verify", s.handleVerifyIntern)
	})

	return r
}
