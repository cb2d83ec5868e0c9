// Package api exposes editing sessions over HTTP: open, save, find,
// replace, export and background import.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/afero"

	"github.com/dgallion1/ultratext/internal/config"
	"github.com/dgallion1/ultratext/internal/metrics"
	"github.com/dgallion1/ultratext/internal/pipeline"
)

// Server is the HTTP API server for ultratext.
type Server struct {
	router       chi.Router
	sessions     *SessionStore
	orchestrator *pipeline.Orchestrator
	fs           afero.Fs
	stats        *metrics.Registry
	log          *slog.Logger
	cfg          config.Config

	cancel context.CancelFunc
}

// NewServer creates and configures the HTTP server. Files are read and
// written on fs; a nil fs means cfg.DataDir on the OS filesystem.
func NewServer(cfg config.Config, fs afero.Fs, log *slog.Logger) *Server {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), cfg.DataDir)
	}
	s := &Server{
		sessions: NewSessionStore(cfg.SessionTTL),
		fs:       fs,
		stats:    metrics.NewRegistry(time.Hour),
		log:      log,
		cfg:      cfg,
	}
	s.orchestrator = pipeline.NewOrchestrator(cfg, s.applyImport, log)
	s.setupRoutes()
	return s
}

// Start runs the import workers and the session janitor until ctx ends or
// Stop is called.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.orchestrator.Start(ctx)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.sessions.Cleanup(); n > 0 {
					s.log.Info("expired sessions", "count", n)
				}
			}
		}
	}()
}

// Stop shuts down the background workers.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.orchestrator.Stop()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/sessions", s.handleCreateSession)
		r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/open", s.handleOpen)
			r.Post("/save", s.handleSave)
			r.Post("/save-as", s.handleSaveAs)
			r.Post("/find", s.handleFind)
			r.Post("/replace", s.handleReplace)
			r.Post("/replace-all", s.handleReplaceAll)
			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)
			r.Get("/export", s.handleExport)
			r.Get("/outline", s.handleOutline)
			r.Post("/import", s.handleImport)
		})
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
