// Package server exposes the statement-of-facts pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/jobs"
)

type Server struct {
	manager *jobs.Manager
	auth    Authenticator
	http    *http.Server
	logger  *slog.Logger

	maxUploadBytes int64
}

type Config struct {
	Addr           string
	MaxUploadBytes int64
}

func New(manager *jobs.Manager, auth Authenticator, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	s := &Server{
		manager:        manager,
		auth:           auth,
		logger:         logger,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router. Exposed separately so tests can drive the handler
// without binding a socket.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/upload", s.handleUpload)
		r.Get("/status/{job_id}", s.handleStatus)
		r.Get("/result/{job_id}", s.handleResult)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/export/{job_id}", s.handleExport)
	})
	return r
}

func (s *Server) Start() error {
	s.logger.Info("http.listen", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("http.encode.error", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain sentinels onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("http.request.error", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
