package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/config"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/handler"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/market"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/middleware"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/logger"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/ratelimit"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/repository"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/risk"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/service"
	"github.com/gin-gonic/gin"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	gin.SetMode(gin.ReleaseMode)

	// 2. Outbound limiters
	registry := ratelimit.NewRegistry(ratelimit.WithLogger(logger.Get()))
	for _, l := range cfg.Limiters {
		registry.GetOrCreate(l.Name, l.RequestsPerMinute)
	}

	// 3. Position book
	var closers []func()
	var repo service.PositionRepo
	switch cfg.Positions.Backend {
	case config.BackendRedis:
		rdb, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
		repo = repository.NewRedisPositionRepo(rdb, cfg.Redis.Key)
		closers = append(closers, func() { _ = rdb.Close() })
	case config.BackendPostgres:
		db, err := repository.NewDB(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		logger.Info("Connected to PostgreSQL")
		pg, err := repository.NewPostgresPositionRepo(db)
		if err != nil {
			log.Fatalf("Failed to prepare positions table: %v", err)
		}
		repo = pg
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
	default:
		repo = service.NewPositionStore()
	}

	// 4. Core services
	params := cfg.Risk.Parameters
	manager := risk.New(&params, risk.WithTotalCapital(cfg.Risk.TotalCapital))
	gate := service.NewTradeGate(manager, repo, cfg.Risk.StartingCapital)

	var quotes market.Provider
	if l, ok := registry.Get(cfg.Polymarket.Limiter); ok {
		quotes = market.NewMarketService(l, cfg.Polymarket.BookTTL())
	}

	inbound := middleware.NewInboundLimiter(cfg.Inbound.QPS, cfg.Inbound.Burst)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case now := <-t.C:
				inbound.Sweep(now)
			}
		}
	}()

	// 5. Router
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	r := handler.NewRouter(handler.RouterConfig{
		Gate:        gate,
		Registry:    registry,
		Quotes:      quotes,
		Inbound:     inbound,
		APIKey:      cfg.Auth.APIKey,
		MetricsPath: metricsPath,
	})

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("polystrat started", "port", cfg.Server.Port, "backend", cfg.Positions.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	stopSweep()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	for _, c := range closers {
		c()
	}

	logger.Info("Server exiting")
}
