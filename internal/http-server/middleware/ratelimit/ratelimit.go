package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tiergate/lib/api/cont"
)

// Limiter throttles requests per client address.
type Limiter struct {
	limit   rate.Limit
	burst   int
	window  time.Duration
	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter for a requests-per-minute budget. A budget of zero
// or less disables throttling and returns nil.
func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   burst,
		window:  5 * time.Minute,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

// Handler rejects a client over budget with deny. A nil limiter passes
// everything through.
func (l *Limiter) Handler(deny http.HandlerFunc) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		fn := func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(cont.GetClientIP(r.Context())) {
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

func (l *Limiter) Allow(key string) bool {
	return l.limiter(key).AllowN(l.now(), 1)
}

func (l *Limiter) limiter(key string) *rate.Limiter {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.clients[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	l.clients[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	l.cleanupLocked(now)
	return limiter
}

func (l *Limiter) cleanupLocked(now time.Time) {
	for key, entry := range l.clients {
		if now.Sub(entry.lastSeen) > l.window {
			delete(l.clients, key)
		}
	}
}
