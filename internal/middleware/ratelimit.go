package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleClientTTL is how long an unused client limiter is kept.
const idleClientTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// InboundLimiter hands out one token bucket per client IP.
type InboundLimiter struct {
	qps   rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func NewInboundLimiter(qps float64, burst int) *InboundLimiter {
	return &InboundLimiter{
		qps:     rate.Limit(qps),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *InboundLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.qps, l.burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// Sweep drops limiters idle since before now - idleClientTTL.
func (l *InboundLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, cl := range l.clients {
		if now.Sub(cl.lastSeen) > idleClientTTL {
			delete(l.clients, k)
			removed++
		}
	}
	return removed
}

func RateLimitMiddleware(l *InboundLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP(), time.Now()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil))
			return
		}
		c.Next()
	}
}
