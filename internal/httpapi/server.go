package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mhtoin/discobot/internal/playback"
	"github.com/rs/zerolog"
)

// Sessions is the read-only view of playback the API exposes.
type Sessions interface {
	Sessions() []string
	Inspect(sessionID string) (playback.Snapshot, bool)
}

type Server struct {
	sessions Sessions
	metrics  http.Handler
	logger   zerolog.Logger
}

func New(sessions Sessions, metrics http.Handler, logger zerolog.Logger) *Server {
	return &Server{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	r.Get("/v1/sessions", s.handleListSessions)
	r.Get("/v1/sessions/{id}", s.handleGetSession)

	return r
}

// Serve runs the API on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http api shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type trackResponse struct {
	Title           string  `json:"title"`
	Source          string  `json:"source"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

type sessionResponse struct {
	ID        string          `json:"id"`
	State     string          `json:"state"`
	Connected bool            `json:"connected"`
	Current   *trackResponse  `json:"current"`
	Queue     []trackResponse `json:"queue"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(s.sessions.Sessions()),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	out := []sessionResponse{}
	for _, id := range s.sessions.Sessions() {
		if snap, ok := s.sessions.Inspect(id); ok {
			out = append(out, toSessionResponse(snap))
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok := s.sessions.Inspect(id)
	if !ok {
		respondError(w, http.StatusNotFound, "session_not_found", "no playback session for "+id)
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(snap))
}

func toSessionResponse(snap playback.Snapshot) sessionResponse {
	resp := sessionResponse{
		ID:        snap.SessionID,
		State:     snap.State.String(),
		Connected: snap.Connected,
		Queue:     make([]trackResponse, 0, len(snap.Queue)),
	}
	if snap.Current != nil {
		t := toTrackResponse(*snap.Current)
		resp.Current = &t
	}
	for _, t := range snap.Queue {
		resp.Queue = append(resp.Queue, toTrackResponse(t))
	}
	return resp
}

func toTrackResponse(t playback.Track) trackResponse {
	return trackResponse{
		Title:           t.Title,
		Source:          t.Source,
		DurationSeconds: t.Duration.Seconds(),
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
