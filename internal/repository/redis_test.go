package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/config"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/risk"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/service"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*RedisPositionRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisPositionRepo(rdb, "test:positions"), mr
}

func pos(id string, cost float64) risk.Position {
	return risk.Position{ID: id, TokenID: "tok-" + id, Side: risk.SideYes, Price: 0.5, Size: cost * 2, Cost: cost}
}

func ids(ps []risk.Position) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestRedisPositionRepo_ListKeepsOpenOrder(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t)

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Add(ctx, pos(id, 0.1)))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids(list))
	assert.Equal(t, pos("a", 0.1), list[1])
}

func TestRedisPositionRepo_DuplicateID(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t)

	require.NoError(t, repo.Add(ctx, pos("a", 0.1)))
	err := repo.Add(ctx, pos("a", 0.2))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))

	members, err := mr.ZMembers(repo.orderKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, members)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0.1, list[0].Cost)
}

func TestRedisPositionRepo_Remove(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Add(ctx, pos(id, 0.1)))
	}

	removed, err := repo.Remove(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, pos("b", 0.1), removed)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(list))
	fields, err := mr.HKeys(repo.hashKey)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, fields)

	_, err = repo.Remove(ctx, "b")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	_, err = repo.Remove(ctx, "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRedisPositionRepo_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.Add(ctx, pos(fmt.Sprintf("p%02d", i), 0.01)))
		}(i)
	}
	wg.Wait()

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}

func TestRedisPositionRepo_ServerDown(t *testing.T) {
	repo, mr := newRedisRepo(t)
	mr.Close()

	_, err := repo.List(context.Background())
	assert.Error(t, err)
	assert.Error(t, repo.Add(context.Background(), pos("a", 0.1)))
}

func TestTradeGateOverRedis(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t)
	params := risk.DefaultParameters()
	gate := service.NewTradeGate(risk.New(&params), repo, risk.DefaultTotalCapital)

	for i := 0; i < 3; i++ {
		_, _, err := gate.Open(ctx, service.Proposal{TokenID: "tok", Side: risk.SideNo, Price: 0.4, Size: 0.25})
		require.NoError(t, err)
	}
	_, d, err := gate.Open(ctx, service.Proposal{TokenID: "tok", Side: risk.SideNo, Price: 0.4, Size: 0.25})
	require.Error(t, err)
	assert.Equal(t, risk.ReasonMaxPositions, d.Code)

	// A fresh repo over the same keys sees the same book.
	again := NewRedisPositionRepo(repo.client, "test:positions")
	list, err := again.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewRedisClient(config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
