package handler

import (
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/market"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/middleware"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/ratelimit"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Gate     *service.TradeGate
	Registry *ratelimit.Registry
	Quotes   market.Provider
	Inbound  *middleware.InboundLimiter
	APIKey   string
	// Empty disables the metrics endpoint.
	MetricsPath string
}

func NewRouter(rc RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.AccessLog())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", NewHealthHandler().Health)
	if rc.MetricsPath != "" {
		r.GET(rc.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	riskH := NewRiskHandler(rc.Gate)
	posH := NewPositionHandler(rc.Gate)
	limH := NewLimiterHandler(rc.Registry)

	v1 := r.Group("/v1")
	if rc.Inbound != nil {
		v1.Use(middleware.RateLimitMiddleware(rc.Inbound))
	}
	{
		v1.POST("/risk/can-trade", riskH.CanTrade)
		v1.POST("/risk/position-size", riskH.PositionSize)
		v1.POST("/risk/expected-value", riskH.ExpectedValue)
		v1.POST("/risk/circuit-breaker", riskH.CircuitBreaker)
		v1.POST("/risk/stop-loss", riskH.StopLoss)
		v1.GET("/risk/report", riskH.Report)

		v1.GET("/positions", posH.List)
		guarded := v1.Group("", middleware.APIKeyGuard(rc.APIKey))
		guarded.POST("/positions", posH.Open)
		guarded.DELETE("/positions/:id", posH.Close)

		v1.GET("/limiters", limH.List)
		v1.GET("/limiters/:name", limH.Get)
	}

	if rc.Quotes != nil {
		mktH := NewMarketHandler(rc.Quotes, rc.Gate)
		v1.GET("/markets/:id/quote", mktH.Quote)
		v1.GET("/markets/:id/size", mktH.Size)
	}

	return r
}
