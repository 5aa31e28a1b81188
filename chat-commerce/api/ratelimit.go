package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

// sessionLimiter throttles UI events per session token
type sessionLimiter struct {
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	sessions map[string]*visitor
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newSessionLimiter(rps float64, burst int) *sessionLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &sessionLimiter{
		rps:      limit,
		burst:    burst,
		sessions: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (l *sessionLimiter) allow(token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.sessions[token]
	if !ok {
		l.evictIdle(now)
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.sessions[token] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// evictIdle drops limiters of sessions not seen for a while; called with mu held
func (l *sessionLimiter) evictIdle(now time.Time) {
	for token, v := range l.sessions {
		if now.Sub(v.lastSeen) > limiterIdle {
			delete(l.sessions, token)
		}
	}
}

// Middleware rejects requests over the per-session rate
func (l *sessionLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		if !l.allow(token) {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			writeError(w, http.StatusTooManyRequests, "too many requests for this session")
			return
		}
		next.ServeHTTP(w, r)
	})
}
