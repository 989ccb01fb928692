package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// maxTrackedSubmitters bounds the limiter map; when exceeded it starts over
const maxTrackedSubmitters = 10000

// submitLimiter throttles job submissions per user with a token bucket
// refilled at perMinute tokens per minute.
type submitLimiter struct {
	mu        sync.Mutex
	perMinute int
	limiters  map[string]*rate.Limiter
}

func newSubmitLimiter(perMinute int) *submitLimiter {
	return &submitLimiter{
		perMinute: perMinute,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Allow consumes one token for username. A zero rate disables throttling.
func (l *submitLimiter) Allow(username string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.perMinute <= 0 {
		return true
	}

	lim, ok := l.limiters[username]
	if !ok {
		if len(l.limiters) >= maxTrackedSubmitters {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute)
		l.limiters[username] = lim
	}
	return lim.Allow()
}

// SetRate changes the rate and forgets existing buckets
func (l *submitLimiter) SetRate(perMinute int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if perMinute == l.perMinute {
		return
	}
	l.perMinute = perMinute
	l.limiters = make(map[string]*rate.Limiter)
}
