package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Conceptual-Machines/microgenre-api/internal/logger"
	"github.com/Conceptual-Machines/microgenre-api/internal/metrics"
)

const (
	// idle buckets are dropped after this long
	limiterIdleTTL = 10 * time.Minute
	sweepInterval  = time.Minute
)

// RateLimiter hands out a token bucket per client key
type RateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rpm requests per minute per client with the given
// burst. rpm <= 0 disables limiting.
func NewRateLimiter(rpm, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if rpm > 0 {
		limit = rate.Limit(float64(rpm) / time.Minute.Seconds())
	}
	return &RateLimiter{
		limit:   limit,
		burst:   burst,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// Enabled reports whether requests are limited at all
func (l *RateLimiter) Enabled() bool {
	return l.limit != rate.Inf
}

// Reserve takes a token for key. It returns how long the caller would have
// to wait, or 0 when the request may proceed now.
func (l *RateLimiter) Reserve(key string) time.Duration {
	if !l.Enabled() {
		return 0
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now

	r := cl.limiter.ReserveN(now, 1)
	if !r.OK() {
		return time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		// Rejected requests must not consume future tokens
		r.CancelAt(now)
		return delay
	}
	return 0
}

func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for key, cl := range l.clients {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(l.clients, key)
		}
	}
}

// RateLimit rejects clients over their budget with 429 and Retry-After.
// Authenticated users are keyed by user ID, everyone else by client IP.
func RateLimit(l *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || !l.Enabled() {
			c.Next()
			return
		}

		key := c.ClientIP()
		if userID, ok := GetUserID(c); ok && userID != anonymousUser {
			key = "user:" + userID
		}

		if wait := l.Reserve(key); wait > 0 {
			retryAfter := int(math.Ceil(wait.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			metrics.RateLimitRejectedTotal.WithLabelValues(EndpointLabel(c)).Inc()
			logger.Warn("Rate limit exceeded", logger.Fields{
				"request_id":  c.GetString("request_id"),
				"client":      key,
				"retry_after": retryAfter,
			})
			abortJSON(c, http.StatusTooManyRequests, "Too many requests")
			return
		}

		c.Next()
	}
}
