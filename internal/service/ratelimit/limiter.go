package ratelimit

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	xhttp "TickerPulse/pkg/http"
)

type client struct {
	lim  *rate.Limiter
	last time.Time
}

// Limiter keeps one token bucket per key. A zero rate disables limiting.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*client
	limit rate.Limit
	burst int
	now   func() time.Time
}

func New(ratePerSec float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		m:     make(map[string]*client),
		limit: rate.Limit(ratePerSec),
		burst: burst,
		now:   time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	if l.limit <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	c, ok := l.m[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.m[key] = c
	}
	c.last = now
	l.mu.Unlock()

	return c.lim.AllowN(now, 1)
}

// Prune drops keys idle for longer than idle; their buckets would be full
// again anyway.
func (l *Limiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, c := range l.m {
		if c.last.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	return n
}

// refill is the time one token takes to come back.
func (l *Limiter) refill() time.Duration {
	return time.Duration(float64(time.Second) / float64(l.limit))
}

// Middleware rejects requests over the limit with 429, keyed by client IP.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded").WithRetryAfter(l.refill()))
			}
			return next(c)
		}
	}
}
