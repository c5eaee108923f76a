// Package ratelimit throttles outbound calls to a named external service with
// an adaptive token bucket. The bucket holds one minute of burst allowance and
// refills continuously; an HTTP 429 halves the refill rate until the service
// has been healthy long enough to step it back up.
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/logger"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/metrics"
)

const (
	latencyHistory = 100

	rateLimitedMultiplier = 0.5
	recoveryDelay         = 60 * time.Second
	recoveryInterval      = 10 * time.Second
	recoveryStep          = 0.1

	// Waiters re-check the bucket at least this often.
	maxPollInterval = time.Second
)

// DefaultBackoff is the sleep before each retry, indexed by attempt.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
}

// MaxRetries is the number of retries after the first attempt with the
// default schedule.
const MaxRetries = 5

type Option func(*Limiter)

func WithClock(c Clock) Option {
	return func(l *Limiter) {
		if c != nil {
			l.clock = c
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.log = log
		}
	}
}

// WithBackoff replaces the retry schedule. The number of retries equals the
// schedule length.
func WithBackoff(schedule []time.Duration) Option {
	return func(l *Limiter) {
		l.backoff = append([]time.Duration(nil), schedule...)
	}
}

// Limiter is safe for concurrent use. The mutex guards token accounting only;
// waiters sleep without holding it.
type Limiter struct {
	name              string
	requestsPerMinute int
	tokensPerSecond   float64
	maxTokens         float64

	clock   Clock
	log     *slog.Logger
	backoff []time.Duration

	mu                 sync.Mutex
	tokens             float64
	lastUpdate         time.Time
	adaptiveMultiplier float64
	last429            time.Time
	recoveryStart      time.Time

	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	rateLimitHits      int64

	latencies    [latencyHistory]time.Duration
	latencyCount int
	latencyNext  int
}

// New creates a limiter allowing requestsPerMinute sustained calls with a
// burst of one minute's worth. Values below 1 are treated as 1.
func New(name string, requestsPerMinute int, opts ...Option) *Limiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	l := &Limiter{
		name:               name,
		requestsPerMinute:  requestsPerMinute,
		tokensPerSecond:    float64(requestsPerMinute) / 60.0,
		maxTokens:          float64(requestsPerMinute),
		clock:              systemClock{},
		backoff:            append([]time.Duration(nil), DefaultBackoff...),
		adaptiveMultiplier: 1.0,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get()
	}
	l.log = l.log.With("limiter", name)
	l.tokens = l.maxTokens
	l.lastUpdate = l.clock.Now()

	metrics.LimiterMultiplier.WithLabelValues(name).Set(l.adaptiveMultiplier)
	metrics.LimiterTokens.WithLabelValues(name).Set(l.tokens)
	return l
}

func (l *Limiter) Name() string { return l.name }

func (l *Limiter) RequestsPerMinute() int { return l.requestsPerMinute }

// Wait blocks until a token is available and consumes it. It returns false if
// timeout (when positive) elapses first or ctx is done; token state is left as
// the last refill computed it.
func (l *Limiter) Wait(ctx context.Context, timeout time.Duration) bool {
	start := l.clock.Now()
	for {
		if ctx.Err() != nil {
			l.observeWait(start, false)
			return false
		}

		l.mu.Lock()
		now := l.clock.Now()
		l.refillLocked(now)
		if l.tokens >= 1 {
			l.tokens--
			metrics.LimiterTokens.WithLabelValues(l.name).Set(l.tokens)
			l.mu.Unlock()
			l.observeWait(start, true)
			return true
		}

		waited := now.Sub(start)
		if timeout > 0 && waited >= timeout {
			l.mu.Unlock()
			l.observeWait(start, false)
			return false
		}

		rate := l.tokensPerSecond * l.adaptiveMultiplier
		sleep := time.Duration((1 - l.tokens) / rate * float64(time.Second))
		l.mu.Unlock()

		if sleep > maxPollInterval {
			sleep = maxPollInterval
		}
		if timeout > 0 && timeout-waited < sleep {
			sleep = timeout - waited
		}
		if sleep <= 0 {
			sleep = time.Millisecond
		}
		if err := l.clock.Sleep(ctx, sleep); err != nil {
			l.observeWait(start, false)
			return false
		}
	}
}

// Allow takes a token if one is available right now.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked(l.clock.Now())
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	metrics.LimiterTokens.WithLabelValues(l.name).Set(l.tokens)
	return true
}

// RecordSuccess counts a successful call. A positive latency is added to the
// rolling window; zero means unknown. Success also drives rate recovery.
func (l *Limiter) RecordSuccess(latency time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.totalRequests++
	l.successfulRequests++
	if latency > 0 {
		l.latencies[l.latencyNext] = latency
		l.latencyNext = (l.latencyNext + 1) % latencyHistory
		if l.latencyCount < latencyHistory {
			l.latencyCount++
		}
	}
	metrics.LimiterRequests.WithLabelValues(l.name, "success").Inc()

	now := l.clock.Now()
	l.refillLocked(now)
	l.recoverLocked(now)
}

// RecordFailure counts a failed call. A 429 drops the adaptive multiplier to
// 0.5, whatever its current value, and restarts the recovery schedule.
func (l *Limiter) RecordFailure(is429 bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.totalRequests++
	l.failedRequests++
	if !is429 {
		metrics.LimiterRequests.WithLabelValues(l.name, "failure").Inc()
		return
	}
	metrics.LimiterRequests.WithLabelValues(l.name, "rate_limited").Inc()
	metrics.LimiterRateLimitHits.WithLabelValues(l.name).Inc()

	now := l.clock.Now()
	// Settle tokens earned at the old rate before slowing down.
	l.refillLocked(now)
	l.rateLimitHits++
	l.adaptiveMultiplier = rateLimitedMultiplier
	l.last429 = now
	l.recoveryStart = time.Time{}
	metrics.LimiterMultiplier.WithLabelValues(l.name).Set(l.adaptiveMultiplier)
	l.log.Warn("rate limited, slowing down", "multiplier", l.adaptiveMultiplier, "hits", l.rateLimitHits)
}

// Multiplier returns the current adaptive refill multiplier.
func (l *Limiter) Multiplier() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.adaptiveMultiplier
}

// Stats is a point-in-time snapshot for logging and dashboards.
type Stats struct {
	Name               string  `json:"name"`
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	RateLimitHits      int64   `json:"rate_limit_hits"`
	AvgLatencyMs       float64 `json:"avg_latency_ms"`
	CurrentTokens      float64 `json:"current_tokens"`
	AdaptiveMultiplier float64 `json:"adaptive_multiplier"`
	RequestsPerMinute  int     `json:"requests_per_minute"`
}

// GetStats reports the stored balance without refilling, so repeated calls
// with no activity in between are identical.
func (l *Limiter) GetStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var avgMs float64
	if l.latencyCount > 0 {
		var sum time.Duration
		for i := 0; i < l.latencyCount; i++ {
			sum += l.latencies[i]
		}
		avgMs = float64(sum) / float64(l.latencyCount) / float64(time.Millisecond)
	}

	return Stats{
		Name:               l.name,
		TotalRequests:      l.totalRequests,
		SuccessfulRequests: l.successfulRequests,
		FailedRequests:     l.failedRequests,
		RateLimitHits:      l.rateLimitHits,
		AvgLatencyMs:       avgMs,
		CurrentTokens:      l.tokens,
		AdaptiveMultiplier: l.adaptiveMultiplier,
		RequestsPerMinute:  l.requestsPerMinute,
	}
}

func (l *Limiter) refillLocked(now time.Time) {
	elapsed := now.Sub(l.lastUpdate).Seconds()
	if elapsed > 0 {
		l.tokens = math.Min(l.maxTokens, l.tokens+elapsed*l.tokensPerSecond*l.adaptiveMultiplier)
	}
	l.lastUpdate = now
}

// recoverLocked raises the multiplier by 0.1 for every 10s of health once a
// minute has passed since the last 429. It never lowers the multiplier.
func (l *Limiter) recoverLocked(now time.Time) {
	if l.last429.IsZero() || l.adaptiveMultiplier >= 1.0 {
		return
	}
	if now.Sub(l.last429) < recoveryDelay {
		return
	}
	if l.recoveryStart.IsZero() {
		l.recoveryStart = now
	}

	steps := math.Floor(now.Sub(l.recoveryStart).Seconds() / recoveryInterval.Seconds())
	target := math.Min(1.0, rateLimitedMultiplier+steps*recoveryStep)
	target = math.Round(target*10) / 10
	if target <= l.adaptiveMultiplier {
		return
	}

	l.adaptiveMultiplier = target
	metrics.LimiterMultiplier.WithLabelValues(l.name).Set(target)
	if target >= 1.0 {
		l.adaptiveMultiplier = 1.0
		l.recoveryStart = time.Time{}
		l.log.Info("rate fully recovered")
		return
	}
	l.log.Info("rate recovering", "multiplier", target)
}

func (l *Limiter) observeWait(start time.Time, acquired bool) {
	label := "false"
	if acquired {
		label = "true"
	}
	metrics.LimiterWait.WithLabelValues(l.name, label).Observe(l.clock.Now().Sub(start).Seconds())
}
