package bot

import (
	"sync"

	"golang.org/x/time/rate"
)

// userLimiter hands every user a token bucket of their own.
type userLimiter struct {
	limit rate.Limit
	burst int

	mu    sync.Mutex
	users map[string]*rate.Limiter
}

func newUserLimiter(limit rate.Limit, burst int) *userLimiter {
	return &userLimiter{
		limit: limit,
		burst: burst,
		users: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether userID may run a command now. A zero limit disables
// limiting.
func (l *userLimiter) Allow(userID string) bool {
	if l.limit == 0 {
		return true
	}

	l.mu.Lock()
	lim, ok := l.users[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.users[userID] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
