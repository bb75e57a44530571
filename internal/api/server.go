// Package api exposes the HTTP surface of the daemon: job submission and
// inspection, the vision-service telemetry webhook, and queue health.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"courtreel/internal/config"
	"courtreel/internal/logging"
	"courtreel/internal/queue"
	"courtreel/internal/services"
	"courtreel/internal/workflow"
)

// maxTelemetryBody bounds webhook payloads; telemetry files are large but
// not unbounded.
const maxTelemetryBody = 256 << 20

// Server serves the daemon HTTP API.
type Server struct {
	bind    string
	logger  *slog.Logger
	store   *queue.Store
	manager *workflow.Manager

	listener net.Listener
	server   *http.Server
}

// NewServer builds the API server. It returns nil when no bind address is
// configured.
func NewServer(cfg *config.Config, store *queue.Store, manager *workflow.Manager, logger *slog.Logger) *Server {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &Server{
		bind:    bind,
		logger:  logger,
		store:   store,
		manager: manager,
	}

	auth := authMiddleware(strings.TrimSpace(cfg.Paths.APIToken))
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", auth(srv.handleJobs))
	mux.HandleFunc("/api/jobs/", auth(srv.handleJob))
	mux.HandleFunc("/api/health", auth(srv.handleHealth))
	// Webhook authenticity rides on the per-job token, not the API token.
	mux.HandleFunc("/api/webhook/", srv.handleWebhook)

	srv.server = &http.Server{
		Handler:           requestIDMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start begins listening and serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler exposes the route mux for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listJobs(w, r)
	case http.MethodPost:
		s.createJob(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := queue.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromJob(job))
	}
	s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: views})
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if strings.TrimSpace(req.SourceVideo) == "" && strings.TrimSpace(req.TelemetryPath) == "" {
		s.writeError(w, http.StatusBadRequest, "source_video or telemetry_path is required")
		return
	}

	job, err := s.store.NewJob(r.Context(), req.Name, req.SourceVideo, req.TelemetryPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, FromJob(job))
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := pathID(r.URL.Path, "/api/jobs/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, FromJob(job))
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := pathID(r.URL.Path, "/api/webhook/")
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "callback rejected")
		return
	}
	token := r.URL.Query().Get("token")
	body := http.MaxBytesReader(w, r.Body, maxTelemetryBody)

	result, err := s.manager.HandleCallback(r.Context(), id, token, body)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusUnauthorized, "callback rejected")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result.AlreadyTerminal {
		s.writeJSON(w, http.StatusOK, WebhookResponse{Status: "acknowledged"})
		return
	}
	if rid, ok := services.RequestIDFromContext(r.Context()); ok {
		s.logger.Info("webhook telemetry accepted",
			logging.Int64("job_id", id), logging.String("request_id", rid))
	}
	s.writeJSON(w, http.StatusAccepted, WebhookResponse{Status: "accepted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	summary, err := s.store.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Total:      summary.Total,
		Pending:    summary.Pending,
		Processing: summary.Processing,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
		CheckedAt:  time.Now().UTC(),
	})
}

func pathID(path, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
