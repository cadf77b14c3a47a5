package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/ports/repository"
)

// Pinger is the health probe against the coordination store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the read-only status surface: request state lookup,
// participant file download, health, metrics, and an admin view of a
// user's rate windows.
type Server struct {
	store     repository.RequestStore
	limiter   repository.RateLimiter
	redis     Pinger
	auth      *AuthManager
	outputDir string
	log       *zerolog.Logger
}

func NewServer(
	store repository.RequestStore,
	limiter repository.RateLimiter,
	redis Pinger,
	auth *AuthManager,
	outputDir string,
	log *zerolog.Logger,
) *Server {
	return &Server{
		store:     store,
		limiter:   limiter,
		redis:     redis,
		auth:      auth,
		outputDir: outputDir,
		log:       log,
	}
}

// Handler builds the chi router with the standard middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(Timeout(30 * time.Second))

	r.Get("/requests/{requestID}", s.handleGetRequest)
	r.Get("/download/{filename}", s.handleDownload)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/admin/rate-limits/{userID}", s.auth.RequireAdmin(s.handleRateLimits))

	return r
}

type requestResponse struct {
	RequestID        string `json:"request_id"`
	ChatID           int64  `json:"chat_id"`
	Status           string `json:"status"`
	Progress         *int   `json:"progress,omitempty"`
	JobID            string `json:"job_id,omitempty"`
	Summary          string `json:"summary,omitempty"`
	ParticipantsFile string `json:"participants_file,omitempty"`
	Error            string `json:"error,omitempty"`
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	req, err := s.store.Get(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "request not found")
			return
		}
		s.log.Error().Err(err).Str("request_id", requestID).Msg("request lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	resp := requestResponse{
		RequestID: req.ID,
		ChatID:    req.ChatID,
		Status:    string(req.Status),
		Progress:  req.Progress,
		JobID:     req.JobID,
		Summary:   req.Summary,
		Error:     req.Error,
	}
	if req.ParticipantsFile != "" {
		resp.ParticipantsFile = filepath.Base(req.ParticipantsFile)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDownload serves a participants file from the output dir. Only
// bare participants_ filenames are accepted; anything that could walk
// out of the directory is rejected outright.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename != filepath.Base(filename) ||
		strings.Contains(filename, "..") ||
		!strings.HasPrefix(filename, "participants_") {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.outputDir, filename))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.redis.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "redis": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type windowResponse struct {
	Count         int    `json:"count"`
	OldestRequest string `json:"oldest_request"`
	NewestRequest string `json:"newest_request"`
	PeriodSeconds int    `json:"period_seconds"`
	ResetsAfter   string `json:"resets_after"`
}

func (s *Server) handleRateLimits(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	windows, err := s.limiter.Windows(r.Context(), userID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("windows lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	out := make(map[string]windowResponse, len(windows))
	for action, win := range windows {
		out[action] = windowResponse{
			Count:         win.Count,
			OldestRequest: win.OldestRequest.UTC().Format(time.RFC3339),
			NewestRequest: win.NewestRequest.UTC().Format(time.RFC3339),
			PeriodSeconds: int(win.Period.Seconds()),
			ResetsAfter:   win.ResetsAfter.Round(time.Second).String(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "windows": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
