package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinictrack/clinictrack/internal/platform/auth"
)

// RateLimitConfig tunes the per-caller request budget.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// limiter holds one token bucket per caller. Authenticated requests
// are keyed by user ID, anonymous traffic (login, health probes) by
// remote IP. Buckets idle past a full refill are pruned.
type limiter struct {
	mu        sync.Mutex
	cells     map[string]*cell
	rate      float64
	burst     float64
	lastPrune time.Time
}

type cell struct {
	level float64
	seen  time.Time
}

const pruneInterval = 5 * time.Minute

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		cells:     make(map[string]*cell),
		rate:      cfg.RequestsPerSecond,
		burst:     float64(cfg.BurstSize),
		lastPrune: time.Now(),
	}
}

// take spends one token from the caller's bucket. When the bucket is
// empty it reports how long until the next token accrues.
func (l *limiter) take(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) > pruneInterval {
		l.prune(now)
	}

	c, ok := l.cells[key]
	if !ok {
		c = &cell{level: l.burst}
		l.cells[key] = c
	} else {
		c.level += now.Sub(c.seen).Seconds() * l.rate
		if c.level > l.burst {
			c.level = l.burst
		}
	}
	c.seen = now

	if c.level < 1 {
		if l.rate <= 0 {
			return false, time.Second
		}
		return false, time.Duration((1 - c.level) / l.rate * float64(time.Second))
	}
	c.level--
	return true, 0
}

// prune drops buckets idle long enough to have refilled to full burst.
func (l *limiter) prune(now time.Time) {
	idle := pruneInterval
	if l.rate > 0 {
		if full := time.Duration(l.burst / l.rate * float64(time.Second)); full > idle {
			idle = full
		}
	}
	for key, c := range l.cells {
		if now.Sub(c.seen) > idle {
			delete(l.cells, key)
		}
	}
	l.lastPrune = now
}

func callerKey(c echo.Context) string {
	if id := auth.UserIDFromContext(c.Request().Context()); id != uuid.Nil {
		return "user:" + id.String()
	}
	return "ip:" + c.RealIP()
}

// RateLimit enforces a token-bucket budget per caller. Install it
// after the auth middleware; before it, every request falls back to
// the IP key.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	lim := newLimiter(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, wait := lim.take(callerKey(c), time.Now())
			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(wait/time.Second)+1))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
