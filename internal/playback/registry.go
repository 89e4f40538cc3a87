package playback

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry owns the session of every guild. Lock order is session before
// registry: r.mu is never held while a session lock is acquired.
type Registry struct {
	sink   Sink
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(sink Sink, logger zerolog.Logger) *Registry {
	return &Registry{
		sink:     sink,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		s = newSession(id, r.sink, r.logger)
		r.sessions[id] = s
		r.logger.Debug().Str("session", id).Msg("session created")
	}
	return s
}

func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	return s, ok
}

// RemoveIfIdle drops the session when it has nothing queued, nothing
// playing and no voice channel. The idle check and the removal happen under
// the session lock, so an enqueue either lands before (and the session
// stays) or sees the session disposed and retries on a new one.
func (r *Registry) RemoveIfIdle(id string) bool {
	s, ok := r.Lookup(id)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed || !s.idle() {
		return false
	}

	r.mu.Lock()
	if r.sessions[id] == s {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	s.disposed = true
	r.logger.Debug().Str("session", id).Msg("session disposed")
	return true
}

// Sweep tries to dispose every session and returns how many went away.
func (r *Registry) Sweep() int {
	removed := 0
	for _, id := range r.IDs() {
		if r.RemoveIfIdle(id) {
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info().Int("removed", n).Int("active", r.Len()).Msg("swept idle sessions")
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs returns the known session ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	slices.Sort(ids)
	return ids
}
