package risk

import (
	"errors"
	"fmt"
)

// Side is one outcome of a two-outcome market.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Complement returns the other outcome.
func (s Side) Complement() Side {
	if s == SideNo {
		return SideYes
	}
	return SideNo
}

// Position is a snapshot of an open position supplied by the caller. Price is
// the entry price of the held outcome, Cost the dollars committed.
type Position struct {
	ID      string  `json:"id"`
	TokenID string  `json:"token_id"`
	Side    Side    `json:"side"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	Cost    float64 `json:"cost"`
}

// Parameters is the immutable risk configuration. Percentages are expressed
// in percent (15 means 15%); KellyFraction is a plain multiplier.
type Parameters struct {
	MaxPositionSize        float64 `json:"max_position_size" mapstructure:"max_position_size"`
	MaxTotalExposure       float64 `json:"max_total_exposure" mapstructure:"max_total_exposure"`
	MaxConcurrentPositions int     `json:"max_concurrent_positions" mapstructure:"max_concurrent_positions"`
	StopLossPct            float64 `json:"stop_loss_pct" mapstructure:"stop_loss_pct"`
	CircuitBreakerPct      float64 `json:"circuit_breaker_pct" mapstructure:"circuit_breaker_pct"`
	KellyFraction          float64 `json:"kelly_fraction" mapstructure:"kelly_fraction"`
	MinExpectedValue       float64 `json:"min_expected_value" mapstructure:"min_expected_value"`
}

// DefaultParameters is sized for a $10 micro bankroll.
func DefaultParameters() Parameters {
	return Parameters{
		MaxPositionSize:        0.20,
		MaxTotalExposure:       2.50,
		MaxConcurrentPositions: 3,
		StopLossPct:            12,
		CircuitBreakerPct:      15,
		KellyFraction:          0.25,
		MinExpectedValue:       0.05,
	}
}

// DefaultTotalCapital is the nominal bankroll used when none is configured.
const DefaultTotalCapital = 10.0

func (p Parameters) Validate() error {
	var errs []error
	if p.MaxPositionSize <= 0 {
		errs = append(errs, fmt.Errorf("max_position_size must be positive, got %v", p.MaxPositionSize))
	}
	if p.MaxTotalExposure <= 0 {
		errs = append(errs, fmt.Errorf("max_total_exposure must be positive, got %v", p.MaxTotalExposure))
	}
	if p.MaxConcurrentPositions <= 0 {
		errs = append(errs, fmt.Errorf("max_concurrent_positions must be positive, got %d", p.MaxConcurrentPositions))
	}
	if p.StopLossPct < 0 || p.StopLossPct >= 100 {
		errs = append(errs, fmt.Errorf("stop_loss_pct must be in [0,100), got %v", p.StopLossPct))
	}
	if p.CircuitBreakerPct <= 0 || p.CircuitBreakerPct > 100 {
		errs = append(errs, fmt.Errorf("circuit_breaker_pct must be in (0,100], got %v", p.CircuitBreakerPct))
	}
	if p.KellyFraction <= 0 || p.KellyFraction > 1 {
		errs = append(errs, fmt.Errorf("kelly_fraction must be in (0,1], got %v", p.KellyFraction))
	}
	if p.MinExpectedValue < 0 {
		errs = append(errs, fmt.Errorf("min_expected_value must not be negative, got %v", p.MinExpectedValue))
	}
	return errors.Join(errs...)
}
