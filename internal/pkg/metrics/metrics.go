package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LimiterRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polystrat_limiter_requests_total",
		Help: "Outbound calls recorded by a rate limiter, by outcome",
	}, []string{"limiter", "outcome"})

	LimiterRateLimitHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polystrat_limiter_429_total",
		Help: "Rate-limit responses (HTTP 429) observed per limiter",
	}, []string{"limiter"})

	LimiterRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polystrat_limiter_retries_total",
		Help: "Backoff retries performed per limiter",
	}, []string{"limiter"})

	LimiterMultiplier = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "polystrat_limiter_adaptive_multiplier",
		Help: "Current adaptive refill multiplier",
	}, []string{"limiter"})

	LimiterTokens = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "polystrat_limiter_tokens",
		Help: "Token balance after the last acquisition attempt",
	}, []string{"limiter"})

	LimiterWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polystrat_limiter_wait_seconds",
		Help:    "Time spent blocked in Wait",
		Buckets: prometheus.DefBuckets,
	}, []string{"limiter", "acquired"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polystrat_http_latency_seconds",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	RiskRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polystrat_risk_rejects_total",
		Help: "Total risk manager rejections",
	}, []string{"reason"})

	PositionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polystrat_positions_open",
		Help: "Open positions in the position book",
	})
)
