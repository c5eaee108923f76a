package risk

import "math"

// Report summarises portfolio risk for dashboards and pre-trade logging.
type Report struct {
	PositionCount         int     `json:"position_count"`
	TotalExposure         float64 `json:"total_exposure"`
	ExposurePct           float64 `json:"exposure_pct"`
	RemainingCapital      float64 `json:"remaining_capital"`
	LargestPosition       float64 `json:"largest_position"`
	ConcentrationRisk     float64 `json:"concentration_risk"`
	CircuitBreakerTripped bool    `json:"circuit_breaker_tripped"`
	CircuitBreakerReason  string  `json:"circuit_breaker_reason"`
	WithinLimits          bool    `json:"within_limits"`
}

// GetRiskReport aggregates exposure against bankroll. ConcentrationRisk is the
// Herfindahl index of position costs: 1 for a single position, 1/n for n
// equal ones, 0 with no exposure.
func (m *Manager) GetRiskReport(positions []Position, bankroll, startingCapital float64) Report {
	// Figures cover finite costs only; a NaN or infinite cost fails the limits.
	exposure := 0.0
	invalid := false
	for _, p := range positions {
		if !finite(p.Cost) {
			invalid = true
			continue
		}
		exposure += p.Cost
	}
	tripped, reason := m.CheckCircuitBreaker(startingCapital, bankroll)

	r := Report{
		PositionCount:         len(positions),
		TotalExposure:         roundCents(exposure),
		RemainingCapital:      roundCents(bankroll - exposure),
		CircuitBreakerTripped: tripped,
		CircuitBreakerReason:  reason,
	}
	if bankroll > 0 {
		r.ExposurePct = round(exposure/bankroll*100, 2)
	}

	oversized := false
	hhi := 0.0
	for _, p := range positions {
		if !finite(p.Cost) {
			continue
		}
		r.LargestPosition = math.Max(r.LargestPosition, p.Cost)
		if p.Cost > m.params.MaxPositionSize+epsilon {
			oversized = true
		}
		if exposure > 0 {
			share := p.Cost / exposure
			hhi += share * share
		}
	}
	r.LargestPosition = roundCents(r.LargestPosition)
	r.ConcentrationRisk = round(hhi, 4)

	r.WithinLimits = !tripped &&
		!invalid &&
		!oversized &&
		len(positions) <= m.params.MaxConcurrentPositions &&
		exposure <= m.params.MaxTotalExposure+epsilon &&
		exposure <= bankroll+epsilon
	return r
}
