// Package api exposes the progress snapshot and toggles over HTTP and
// pushes snapshot changes to websocket clients.
package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/p-n-ai/pai-tracker/internal/progress"
	"github.com/p-n-ai/pai-tracker/internal/report"
	"github.com/p-n-ai/pai-tracker/internal/summary"
)

const readyTimeout = 2 * time.Second

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// Config holds dependencies for a Server.
type Config struct {
	Reconciler *progress.Reconciler
	Summary    *summary.Aggregator
	// Checks are probed by /readyz, keyed by component name.
	Checks map[string]HealthChecker
	Logger *slog.Logger
}

// Server serves the local progress API.
type Server struct {
	rec     *progress.Reconciler
	store   *progress.SnapshotStore
	summary *summary.Aggregator
	checks  map[string]HealthChecker
	logger  *slog.Logger
}

// NewServer creates a Server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		rec:     cfg.Reconciler,
		store:   cfg.Reconciler.Store(),
		summary: cfg.Summary,
		checks:  cfg.Checks,
		logger:  logger.With("component", "api"),
	}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/topics", s.handleTopics)
		r.Post("/topics/{topicID}/problems/{problemID}/toggle", s.handleToggle)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/summary", s.handleSummary)
		r.Get("/export.xlsx", s.handleExport)
		r.Get("/ws", s.handleWebSocket)
	})
	return r
}

// requestLogger logs each request with its chi request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("readiness check failed", "check", name, "error", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":    "unavailable",
				"component": name,
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type topicsResponse struct {
	Version uint64           `json:"version"`
	Topics  []progress.Topic `json:"topics"`
}

func (s *Server) snapshot() topicsResponse {
	return topicsResponse{Version: s.store.Version(), Topics: s.store.Snapshot()}
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.snapshot())
}

type toggleResponse struct {
	Outcome progress.Outcome `json:"outcome"`
	Warning string           `json:"warning,omitempty"`
	topicsResponse
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")
	problemID := chi.URLParam(r, "problemID")

	// A client hanging up must not roll back a write the authority may have
	// taken; the sync client's own timeout still bounds the call.
	out, err := s.rec.Toggle(context.WithoutCancel(r.Context()), topicID, problemID)
	if err != nil {
		respondError(w, r, s.logger, err, msgToggleFailed)
		return
	}

	resp := toggleResponse{Outcome: out, topicsResponse: s.snapshot()}
	if out.Warning != nil {
		resp.Warning = "Saved, but the latest progress could not be loaded."
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.rec.Refresh(r.Context()); err != nil {
		respondError(w, r, s.logger, err, msgFetchFailed)
		return
	}
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.summary == nil {
		respondJSON(w, http.StatusNotFound, errorResponse{Message: "summary is not configured"})
		return
	}
	view, err := s.summary.View(r.Context(), s.store.Snapshot())
	if err != nil {
		respondError(w, r, s.logger, err, msgSummaryFailed)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	topics := s.store.Snapshot()

	var view *summary.View
	if s.summary != nil {
		v, err := s.summary.View(r.Context(), topics)
		if err != nil {
			s.logger.Warn("exporting without summary", "error", err)
		} else {
			view = &v
		}
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, topics, view); err != nil {
		s.logger.Error("export failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Message: msgExportFailed})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("writing export", "error", err)
	}
}
