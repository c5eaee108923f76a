package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/logger"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/metrics"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/risk"
	"github.com/google/uuid"
)

const ReasonCircuitBreaker = "circuit_breaker"

// PositionRepo persists the open position book.
type PositionRepo interface {
	List(ctx context.Context) ([]risk.Position, error)
	Add(ctx context.Context, p risk.Position) error
	Remove(ctx context.Context, id string) (risk.Position, error)
}

// Proposal is a trade the caller wants to open. Bankroll is the caller's
// current capital and is what the circuit breaker measures drawdown on. Zero
// falls back to the manager's configured total capital, which equals the
// starting capital by default, so the breaker only trips for callers that
// report their bankroll. The HTTP layer requires it.
type Proposal struct {
	TokenID  string
	Side     risk.Side
	Price    float64
	Size     float64
	Bankroll float64
}

func (p Proposal) Cost() float64 { return p.Price * p.Size }

// TradeGate owns the position book. Decisions are serialized so every check
// sees a consistent snapshot and the accepted position lands before the next
// check runs.
type TradeGate struct {
	risk            *risk.Manager
	repo            PositionRepo
	startingCapital float64

	mu sync.Mutex
}

func NewTradeGate(manager *risk.Manager, repo PositionRepo, startingCapital float64) *TradeGate {
	return &TradeGate{risk: manager, repo: repo, startingCapital: startingCapital}
}

func (g *TradeGate) Manager() *risk.Manager { return g.risk }

// Open runs the circuit breaker and the exposure limits against the current
// book and records the position when both pass.
func (g *TradeGate) Open(ctx context.Context, p Proposal) (risk.Position, risk.Decision, error) {
	if err := validateProposal(p); err != nil {
		return risk.Position{}, risk.Decision{}, err
	}
	bankroll := p.Bankroll
	if !(bankroll > 0) {
		bankroll = g.risk.TotalCapital()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if tripped, reason := g.risk.CheckCircuitBreaker(g.startingCapital, bankroll); tripped {
		metrics.RiskRejects.WithLabelValues(ReasonCircuitBreaker).Inc()
		d := risk.Decision{Reason: reason, Code: ReasonCircuitBreaker}
		return risk.Position{}, d, apperrors.NewRiskReject(reason)
	}

	positions, err := g.repo.List(ctx)
	if err != nil {
		return risk.Position{}, risk.Decision{}, apperrors.New(apperrors.ErrInternal, "failed to load positions", err)
	}

	d := g.risk.Check(positions, p.Cost())
	if !d.Allowed {
		metrics.RiskRejects.WithLabelValues(d.Code).Inc()
		logger.Info("trade rejected", "token_id", p.TokenID, "code", d.Code, "reason", d.Reason)
		return risk.Position{}, d, apperrors.NewRiskReject(d.Reason)
	}

	pos := risk.Position{
		ID:      uuid.NewString(),
		TokenID: p.TokenID,
		Side:    p.Side,
		Price:   p.Price,
		Size:    p.Size,
		Cost:    p.Cost(),
	}
	if err := g.repo.Add(ctx, pos); err != nil {
		return risk.Position{}, d, apperrors.Wrap(err)
	}
	metrics.PositionsOpen.Set(float64(len(positions) + 1))
	logger.Info("position opened", "id", pos.ID, "token_id", pos.TokenID, "side", pos.Side, "cost", pos.Cost)
	return pos, d, nil
}

func (g *TradeGate) Close(ctx context.Context, id string) (risk.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos, err := g.repo.Remove(ctx, id)
	if err != nil {
		return risk.Position{}, apperrors.Wrap(err)
	}
	if remaining, err := g.repo.List(ctx); err == nil {
		metrics.PositionsOpen.Set(float64(len(remaining)))
	}
	logger.Info("position closed", "id", id)
	return pos, nil
}

func (g *TradeGate) Positions(ctx context.Context) ([]risk.Position, error) {
	positions, err := g.repo.List(ctx)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "failed to load positions", err)
	}
	return positions, nil
}

// Report summarizes the book. A non-positive bankroll means total capital.
func (g *TradeGate) Report(ctx context.Context, bankroll float64) (risk.Report, error) {
	positions, err := g.Positions(ctx)
	if err != nil {
		return risk.Report{}, err
	}
	if bankroll <= 0 {
		bankroll = g.risk.TotalCapital()
	}
	return g.risk.GetRiskReport(positions, bankroll, g.startingCapital), nil
}

func validateProposal(p Proposal) error {
	if p.TokenID == "" {
		return apperrors.NewInvalidRequest("token_id is required")
	}
	if !p.Side.Valid() {
		return apperrors.NewInvalidRequest(fmt.Sprintf("invalid side %q", p.Side))
	}
	if !(p.Price > 0 && p.Price < 1) {
		return apperrors.NewInvalidRequest(fmt.Sprintf("price %.4f out of bounds (0-1)", p.Price))
	}
	if !(p.Size > 0) || math.IsInf(p.Size, 1) {
		return apperrors.NewInvalidRequest("size must be positive")
	}
	return nil
}
