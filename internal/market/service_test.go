package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	bids, asks []RawLevel
	err        error
	calls      int
}

func (s *stubFetcher) fetch(_ context.Context, _ string) ([]RawLevel, []RawLevel, error) {
	s.calls++
	return s.bids, s.asks, s.err
}

func TestOrderbook_SortsAndDropsEmptyLevels(t *testing.T) {
	ob, err := NewOrderbook("tok",
		[]RawLevel{{"0.40", "10"}, {"0.45", "5"}, {"0.44", "0"}},
		[]RawLevel{{"0.55", "3"}, {"0.50", "7"}},
		time.Unix(0, 0))
	require.NoError(t, err)

	require.Len(t, ob.Bids, 2)
	assert.Equal(t, "0.45", ob.Bids[0].Price.String())
	assert.Equal(t, "0.5", ob.Asks[0].Price.String())

	q, err := ob.Quote()
	require.NoError(t, err)
	assert.InDelta(t, 0.475, q.Mid, 1e-9)
	assert.InDelta(t, 0.05, q.Spread, 1e-9)
	assert.InDelta(t, 15, q.BidDepth, 1e-9)
	assert.InDelta(t, 10, q.AskDepth, 1e-9)
}

func TestOrderbook_RejectsMalformedPrice(t *testing.T) {
	_, err := NewOrderbook("tok", []RawLevel{{"abc", "1"}}, nil, time.Now())
	assert.Error(t, err)
}

func TestOrderbook_OneSidedHasNoQuote(t *testing.T) {
	ob, err := NewOrderbook("tok", []RawLevel{{"0.40", "1"}}, nil, time.Now())
	require.NoError(t, err)
	_, err = ob.Quote()
	assert.Error(t, err)
}

func TestMarketService_CachesWithinTTL(t *testing.T) {
	f := &stubFetcher{
		bids: []RawLevel{{"0.30", "1"}},
		asks: []RawLevel{{"0.32", "1"}},
	}
	svc := NewMarketServiceWithFetcher(f.fetch, time.Second)
	now := time.Unix(1000, 0)
	svc.now = func() time.Time { return now }

	q, err := svc.Quote(context.Background(), "tok")
	require.NoError(t, err)
	assert.InDelta(t, 0.31, q.Mid, 1e-9)

	_, err = svc.Quote(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)

	now = now.Add(2 * time.Second)
	_, err = svc.Quote(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestMarketService_Errors(t *testing.T) {
	ctx := context.Background()

	svc := NewMarketServiceWithFetcher((&stubFetcher{}).fetch, 0)
	_, err := svc.Quote(ctx, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))

	svc = NewMarketServiceWithFetcher((&stubFetcher{err: errors.New("boom")}).fetch, 0)
	_, err = svc.Quote(ctx, "tok")
	assert.True(t, apperrors.Is(err, apperrors.ErrUpstream))

	exhausted := apperrors.NewRetriesExhausted("polymarket", 6, errors.New("503"))
	svc = NewMarketServiceWithFetcher((&stubFetcher{err: exhausted}).fetch, 0)
	_, err = svc.Quote(ctx, "tok")
	assert.True(t, apperrors.Is(err, apperrors.ErrRetriesExhausted))

	svc = NewMarketServiceWithFetcher((&stubFetcher{bids: []RawLevel{{"0.5", "1"}}}).fetch, 0)
	_, err = svc.Quote(ctx, "tok")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
