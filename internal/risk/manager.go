// Package risk gates and sizes trades on two-outcome markets. The Manager is
// stateless apart from its configuration: callers pass a full snapshot of
// their open positions on every call, so it is safe to share between
// goroutines without locking.
package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// Float slack for limit comparisons.
	epsilon = 1e-9

	minPrice = 0.01
	maxPrice = 0.99
)

// Rejection codes, stable for metrics and tests. Checks run in this order.
const (
	ReasonPositionSize        = "position_size"
	ReasonMaxPositions        = "max_positions"
	ReasonTotalExposure       = "total_exposure"
	ReasonInsufficientCapital = "insufficient_capital"
	// Proposed or existing cost is NaN or infinite. Checked before the rest.
	ReasonInvalidCost = "invalid_cost"
)

type Option func(*Manager)

// WithTotalCapital sets the capital available for new positions.
func WithTotalCapital(capital float64) Option {
	return func(m *Manager) {
		m.totalCapital = capital
	}
}

type Manager struct {
	params       Parameters
	totalCapital float64
}

// New copies params; nil selects DefaultParameters.
func New(params *Parameters, opts ...Option) *Manager {
	p := DefaultParameters()
	if params != nil {
		p = *params
	}
	m := &Manager{params: p, totalCapital: DefaultTotalCapital}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Parameters() Parameters { return m.params }

func (m *Manager) TotalCapital() float64 { return m.totalCapital }

// Decision is the outcome of a trade check. Code is empty when allowed.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	Code    string `json:"code,omitempty"`
}

// Check evaluates a proposed trade against the limits, in order: single
// position size, open position count, total exposure, available capital. The
// first violation wins.
func (m *Manager) Check(positions []Position, proposedCost float64) Decision {
	if !finite(proposedCost) {
		return Decision{
			Reason: fmt.Sprintf("Invalid proposed cost %v", proposedCost),
			Code:   ReasonInvalidCost,
		}
	}
	for _, p := range positions {
		if !finite(p.Cost) {
			return Decision{
				Reason: fmt.Sprintf("Position %s has invalid cost %v", p.ID, p.Cost),
				Code:   ReasonInvalidCost,
			}
		}
	}

	if proposedCost > m.params.MaxPositionSize+epsilon {
		return Decision{
			Reason: fmt.Sprintf("Position size $%.2f exceeds max $%.2f", proposedCost, m.params.MaxPositionSize),
			Code:   ReasonPositionSize,
		}
	}

	if len(positions) >= m.params.MaxConcurrentPositions {
		return Decision{
			Reason: fmt.Sprintf("Max concurrent positions reached (%d/%d)", len(positions), m.params.MaxConcurrentPositions),
			Code:   ReasonMaxPositions,
		}
	}

	total := TotalExposure(positions) + proposedCost
	if total > m.params.MaxTotalExposure+epsilon {
		return Decision{
			Reason: fmt.Sprintf("Total exposure $%.2f would exceed max $%.2f", total, m.params.MaxTotalExposure),
			Code:   ReasonTotalExposure,
		}
	}

	if total > m.totalCapital+epsilon {
		return Decision{
			Reason: fmt.Sprintf("Insufficient capital: need $%.2f, have $%.2f", total, m.totalCapital),
			Code:   ReasonInsufficientCapital,
		}
	}

	return Decision{Allowed: true, Reason: "Trade allowed"}
}

// CanTrade reports whether the proposed trade fits every limit, with a
// human-readable reason.
func (m *Manager) CanTrade(positions []Position, proposedCost float64) (bool, string) {
	d := m.Check(positions, proposedCost)
	return d.Allowed, d.Reason
}

// CalculateKellySize returns the fractional-Kelly stake in dollars for a bet
// won with probability at decimal odds. Invalid inputs or a negative edge
// give 0. The stake is capped at MaxPositionSize.
func (m *Manager) CalculateKellySize(probability, odds, bankroll float64) float64 {
	if !finite(probability, odds, bankroll) || probability <= 0 || probability >= 1 || odds <= 1 || bankroll <= 0 {
		return 0
	}
	b := odds - 1
	f := (b*probability - (1 - probability)) / b
	f *= m.params.KellyFraction
	if f <= 0 {
		return 0
	}
	return math.Min(f*bankroll, m.params.MaxPositionSize)
}

// EdgeSide returns the outcome the estimate favours and the size of the edge.
// Ties favour YES with zero edge.
func EdgeSide(marketPrice, estimatedProbability float64) (Side, float64) {
	if estimatedProbability >= marketPrice {
		return SideYes, estimatedProbability - marketPrice
	}
	return SideNo, marketPrice - estimatedProbability
}

// Sizing describes a recommended trade.
type Sizing struct {
	Side           Side    `json:"side"`
	Edge           float64 `json:"edge"`
	EntryPrice     float64 `json:"entry_price"`
	WinProbability float64 `json:"win_probability"`
	Odds           float64 `json:"odds"`
	Size           float64 `json:"size"`
}

// SizeTrade picks the advantaged side of a binary market priced at
// marketPrice (the YES price) and sizes it with fractional Kelly. Size is 0
// when the edge is below MinExpectedValue or the inputs are out of range.
func (m *Manager) SizeTrade(marketPrice, estimatedProbability, bankroll float64) Sizing {
	if !finite(marketPrice, estimatedProbability, bankroll) ||
		!validPrice(marketPrice) || estimatedProbability < 0 || estimatedProbability > 1 {
		return Sizing{}
	}

	side, edge := EdgeSide(marketPrice, estimatedProbability)
	s := Sizing{Side: side, Edge: edge, EntryPrice: marketPrice, WinProbability: estimatedProbability}
	if side == SideNo {
		s.EntryPrice = 1 - marketPrice
		s.WinProbability = 1 - estimatedProbability
	}
	s.Odds = 1 / s.EntryPrice

	if edge+epsilon < m.params.MinExpectedValue || edge <= 0 {
		return s
	}

	size := roundCents(m.CalculateKellySize(s.WinProbability, s.Odds, bankroll))
	s.Size = math.Min(size, m.params.MaxPositionSize)
	return s
}

// CalculatePositionSize returns the recommended stake in dollars, rounded to
// the cent and never above MaxPositionSize.
func (m *Manager) CalculatePositionSize(marketPrice, estimatedProbability, bankroll float64) float64 {
	return m.SizeTrade(marketPrice, estimatedProbability, bankroll).Size
}

// ExpectedValue of buying the advantaged side for a given cost.
type ExpectedValue struct {
	Side             Side    `json:"side"`
	EntryPrice       float64 `json:"entry_price"`
	WinProbability   float64 `json:"win_probability"`
	Shares           float64 `json:"shares"`
	PotentialProfit  float64 `json:"potential_profit"`
	ExpectedValue    float64 `json:"expected_value"`
	ExpectedValuePct float64 `json:"expected_value_pct"`
	EdgePct          float64 `json:"edge_pct"`
}

// CalculateExpectedValue prices a purchase of tradeCost dollars of whichever
// side the estimate favours. Shares pay $1 on a win; the NO side is priced at
// 1 - marketPrice.
func (m *Manager) CalculateExpectedValue(marketPrice, estimatedProbability, tradeCost float64) ExpectedValue {
	if !finite(marketPrice, estimatedProbability, tradeCost) ||
		!validPrice(marketPrice) || estimatedProbability < 0 || estimatedProbability > 1 || tradeCost <= 0 {
		return ExpectedValue{}
	}

	side, edge := EdgeSide(marketPrice, estimatedProbability)
	price, win := marketPrice, estimatedProbability
	if side == SideNo {
		price, win = 1-marketPrice, 1-estimatedProbability
	}

	shares := tradeCost / price
	profit := shares - tradeCost
	ev := win*shares - tradeCost

	return ExpectedValue{
		Side:             side,
		EntryPrice:       price,
		WinProbability:   win,
		Shares:           round(shares, 4),
		PotentialProfit:  roundCents(profit),
		ExpectedValue:    roundCents(ev),
		ExpectedValuePct: round(ev/tradeCost*100, 2),
		EdgePct:          round(edge*100, 2),
	}
}

// CheckCircuitBreaker reports whether trading must halt because the drawdown
// from startingCapital reached CircuitBreakerPct. A non-positive starting
// capital trips the breaker, as does a NaN or infinite capital figure.
func (m *Manager) CheckCircuitBreaker(startingCapital, currentCapital float64) (bool, string) {
	if !finite(startingCapital) || startingCapital <= 0 {
		return true, "Invalid starting capital"
	}
	if !finite(currentCapital) {
		return true, "Invalid current capital"
	}
	drawdown := (startingCapital - currentCapital) / startingCapital * 100
	if drawdown+epsilon >= m.params.CircuitBreakerPct {
		return true, fmt.Sprintf("Circuit breaker tripped: drawdown %.2f%% >= %.2f%%", drawdown, m.params.CircuitBreakerPct)
	}
	return false, fmt.Sprintf("Drawdown %.2f%% within limit %.2f%%", drawdown, m.params.CircuitBreakerPct)
}

// CalculateStopLossPrice returns the YES price at which a position should be
// cut. For YES the stop sits StopLossPct below entry, floored at 1 cent; for
// NO the same distance is applied to the NO price (1 - entry) and mapped back,
// so the stop sits above entry, capped at 99 cents. A NaN or infinite entry
// gives 0.
func (m *Manager) CalculateStopLossPrice(entryPrice float64, side Side) float64 {
	if !finite(entryPrice) {
		return 0
	}
	keep := 1 - m.params.StopLossPct/100
	if side == SideNo {
		stop := 1 - (1-entryPrice)*keep
		return math.Min(roundCents(stop), maxPrice)
	}
	return math.Max(roundCents(entryPrice*keep), minPrice)
}

// TotalExposure sums position costs.
func TotalExposure(positions []Position) float64 {
	total := 0.0
	for _, p := range positions {
		total += p.Cost
	}
	return total
}

func validPrice(p float64) bool {
	return p > 0 && p < 1
}

func roundCents(v float64) float64 {
	return round(v, 2)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// round gives 0 for NaN and infinities; decimal cannot represent them.
func round(v float64, places int32) float64 {
	if !finite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
