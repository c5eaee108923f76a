package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/risk"
	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Inbound    InboundConfig    `mapstructure:"inbound"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Limiters   []LimiterConfig  `mapstructure:"limiters"`
	Polymarket PolymarketConfig `mapstructure:"polymarket"`
	Positions  PositionsConfig  `mapstructure:"positions"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
}

type ServerConfig struct {
	Port            string `mapstructure:"port"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout_seconds"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type AuthConfig struct {
	// Empty disables the guard on mutating routes.
	APIKey string `mapstructure:"api_key"`
}

// InboundConfig limits each client of this service.
type InboundConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

type RiskConfig struct {
	risk.Parameters `mapstructure:",squash"`
	TotalCapital    float64 `mapstructure:"total_capital"`
	StartingCapital float64 `mapstructure:"starting_capital"`
}

// LimiterConfig declares one named outbound limiter.
type LimiterConfig struct {
	Name              string `mapstructure:"name"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

type PolymarketConfig struct {
	// Name of the limiter the CLOB client draws from.
	Limiter   string `mapstructure:"limiter"`
	BookTTLMs int    `mapstructure:"book_ttl_ms"`
}

func (c PolymarketConfig) BookTTL() time.Duration {
	return time.Duration(c.BookTTLMs) * time.Millisecond
}

type PositionsConfig struct {
	Backend string `mapstructure:"backend"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// Load reads config.yaml from the given directories (default "." and
// "./configs") and POLYSTRAT_* environment variables.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// e.g. POLYSTRAT_RISK_KELLY_FRACTION
	v.SetEnvPrefix("polystrat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("auth.api_key", "")
	v.SetDefault("inbound.qps", 20.0)
	v.SetDefault("inbound.burst", 40)

	d := risk.DefaultParameters()
	v.SetDefault("risk.max_position_size", d.MaxPositionSize)
	v.SetDefault("risk.max_total_exposure", d.MaxTotalExposure)
	v.SetDefault("risk.max_concurrent_positions", d.MaxConcurrentPositions)
	v.SetDefault("risk.stop_loss_pct", d.StopLossPct)
	v.SetDefault("risk.circuit_breaker_pct", d.CircuitBreakerPct)
	v.SetDefault("risk.kelly_fraction", d.KellyFraction)
	v.SetDefault("risk.min_expected_value", d.MinExpectedValue)
	v.SetDefault("risk.total_capital", risk.DefaultTotalCapital)
	v.SetDefault("risk.starting_capital", risk.DefaultTotalCapital)

	v.SetDefault("limiters", []map[string]any{
		{"name": "polymarket", "requests_per_minute": 60},
		{"name": "twitter", "requests_per_minute": 15},
	})
	v.SetDefault("polymarket.limiter", "polymarket")
	v.SetDefault("polymarket.book_ttl_ms", 2000)

	v.SetDefault("positions.backend", BackendMemory)
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "polystrat:positions")
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Risk.Parameters.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Risk.TotalCapital <= 0 {
		errs = append(errs, errors.New("risk.total_capital must be positive"))
	}
	if c.Risk.StartingCapital <= 0 {
		errs = append(errs, errors.New("risk.starting_capital must be positive"))
	}

	seen := make(map[string]bool, len(c.Limiters))
	for i, l := range c.Limiters {
		if l.Name == "" {
			errs = append(errs, fmt.Errorf("limiters[%d]: name is required", i))
			continue
		}
		if seen[l.Name] {
			errs = append(errs, fmt.Errorf("limiters[%d]: duplicate name %q", i, l.Name))
		}
		seen[l.Name] = true
		if l.RequestsPerMinute <= 0 {
			errs = append(errs, fmt.Errorf("limiter %q: requests_per_minute must be positive", l.Name))
		}
	}
	if c.Polymarket.Limiter != "" && !seen[c.Polymarket.Limiter] {
		errs = append(errs, fmt.Errorf("polymarket.limiter %q is not declared in limiters", c.Polymarket.Limiter))
	}

	if c.Inbound.QPS <= 0 || c.Inbound.Burst <= 0 {
		errs = append(errs, errors.New("inbound.qps and inbound.burst must be positive"))
	}

	switch c.Positions.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown positions.backend %q", c.Positions.Backend))
	}

	return errors.Join(errs...)
}
