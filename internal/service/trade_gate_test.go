package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T) *TradeGate {
	t.Helper()
	params := risk.DefaultParameters()
	return NewTradeGate(risk.New(&params), NewPositionStore(), risk.DefaultTotalCapital)
}

func TestTradeGate_OpenRecordsPosition(t *testing.T) {
	ctx := context.Background()
	g := newGate(t)

	pos, d, err := g.Open(ctx, Proposal{TokenID: "tok", Side: risk.SideYes, Price: 0.35, Size: 0.5})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.NotEmpty(t, pos.ID)
	assert.InDelta(t, 0.175, pos.Cost, 1e-9)

	list, err := g.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pos.ID, list[0].ID)
}

func TestTradeGate_RejectsPastMaxPositions(t *testing.T) {
	ctx := context.Background()
	g := newGate(t)

	for i := 0; i < 3; i++ {
		_, _, err := g.Open(ctx, Proposal{TokenID: "tok", Side: risk.SideNo, Price: 0.5, Size: 0.2})
		require.NoError(t, err)
	}
	_, d, err := g.Open(ctx, Proposal{TokenID: "tok", Side: risk.SideNo, Price: 0.5, Size: 0.2})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrRiskReject))
	assert.Equal(t, risk.ReasonMaxPositions, d.Code)
}

func TestTradeGate_CircuitBreakerBlocks(t *testing.T) {
	g := newGate(t)
	_, d, err := g.Open(context.Background(), Proposal{TokenID: "tok", Side: risk.SideYes, Price: 0.5, Size: 0.1, Bankroll: 8.0})
	require.Error(t, err)
	assert.Equal(t, ReasonCircuitBreaker, d.Code)
}

func TestTradeGate_InvalidProposal(t *testing.T) {
	g := newGate(t)
	cases := []Proposal{
		{Side: risk.SideYes, Price: 0.5, Size: 1},
		{TokenID: "t", Side: "MAYBE", Price: 0.5, Size: 1},
		{TokenID: "t", Side: risk.SideYes, Price: 1, Size: 1},
		{TokenID: "t", Side: risk.SideYes, Price: 0.5, Size: 0},
		{TokenID: "t", Side: risk.SideYes, Price: math.NaN(), Size: 1},
		{TokenID: "t", Side: risk.SideYes, Price: 0.5, Size: math.NaN()},
		{TokenID: "t", Side: risk.SideYes, Price: 0.5, Size: math.Inf(1)},
	}
	for _, p := range cases {
		_, _, err := g.Open(context.Background(), p)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest), "%+v", p)
	}
}

func TestTradeGate_CloseAndReport(t *testing.T) {
	ctx := context.Background()
	g := newGate(t)

	a, _, err := g.Open(ctx, Proposal{TokenID: "a", Side: risk.SideYes, Price: 0.5, Size: 0.4})
	require.NoError(t, err)
	_, _, err = g.Open(ctx, Proposal{TokenID: "b", Side: risk.SideYes, Price: 0.5, Size: 0.4})
	require.NoError(t, err)

	rep, err := g.Report(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.PositionCount)
	assert.InDelta(t, 0.4, rep.TotalExposure, 1e-9)

	closed, err := g.Close(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", closed.TokenID)

	_, err = g.Close(ctx, a.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	rep, err = g.Report(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.PositionCount)
}

// Concurrent opens never overrun the position limit.
func TestTradeGate_ConcurrentOpensRespectLimit(t *testing.T) {
	ctx := context.Background()
	g := newGate(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := g.Open(ctx, Proposal{TokenID: "tok", Side: risk.SideYes, Price: 0.5, Size: 0.1}); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)
	list, err := g.Positions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

type failingRepo struct{ PositionStore }

func (*failingRepo) List(context.Context) ([]risk.Position, error) {
	return nil, errors.New("connection refused")
}

func TestTradeGate_RepoFailure(t *testing.T) {
	params := risk.DefaultParameters()
	g := NewTradeGate(risk.New(&params), &failingRepo{}, risk.DefaultTotalCapital)
	_, _, err := g.Open(context.Background(), Proposal{TokenID: "tok", Side: risk.SideYes, Price: 0.5, Size: 0.1})
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
}
