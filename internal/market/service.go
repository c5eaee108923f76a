package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	polymarket "github.com/GoPolymarket/polymarket-go-sdk"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/logger"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/ratelimit"
)

const DefaultCacheTTL = 2 * time.Second

// FetchFunc pulls raw bids and asks for a token.
type FetchFunc func(ctx context.Context, tokenID string) (bids, asks []RawLevel, err error)

// MarketService serves order books from the CLOB, caching each for a short
// TTL so bursts of sizing requests cost one upstream call.
type MarketService struct {
	fetch FetchFunc
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	books map[string]*Orderbook
}

// NewMarketService talks to the CLOB through the Polymarket SDK. Every HTTP
// request the SDK makes takes a token from limiter and is retried on failure.
func NewMarketService(limiter *ratelimit.Limiter, ttl time.Duration) *MarketService {
	client := polymarket.NewClient(
		polymarket.WithUseServerTime(true),
		polymarket.WithHTTPClient(ratelimit.NewClient(limiter)),
	)
	fetch := func(ctx context.Context, tokenID string) ([]RawLevel, []RawLevel, error) {
		book, err := client.CLOB.OrderBook(ctx, &clobtypes.BookRequest{TokenID: tokenID})
		if err != nil {
			return nil, nil, err
		}
		bids := make([]RawLevel, 0, len(book.Bids))
		for _, l := range book.Bids {
			bids = append(bids, RawLevel{Price: l.Price, Size: l.Size})
		}
		asks := make([]RawLevel, 0, len(book.Asks))
		for _, l := range book.Asks {
			asks = append(asks, RawLevel{Price: l.Price, Size: l.Size})
		}
		return bids, asks, nil
	}
	return NewMarketServiceWithFetcher(fetch, ttl)
}

// NewMarketServiceWithFetcher uses fetch instead of the SDK.
func NewMarketServiceWithFetcher(fetch FetchFunc, ttl time.Duration) *MarketService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MarketService{
		fetch: fetch,
		ttl:   ttl,
		now:   time.Now,
		books: make(map[string]*Orderbook),
	}
}

func (s *MarketService) Book(ctx context.Context, tokenID string) (*Orderbook, error) {
	if tokenID == "" {
		return nil, apperrors.NewInvalidRequest("token id is required")
	}

	s.mu.RLock()
	cached, ok := s.books[tokenID]
	s.mu.RUnlock()
	if ok && s.now().Sub(cached.FetchedAt) < s.ttl {
		return cached, nil
	}

	bids, asks, err := s.fetch(ctx, tokenID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRetriesExhausted) || apperrors.Is(err, apperrors.ErrRateLimited) {
			return nil, err
		}
		return nil, apperrors.New(apperrors.ErrUpstream, "failed to fetch order book", err)
	}
	book, err := NewOrderbook(tokenID, bids, asks, s.now())
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, fmt.Sprintf("malformed order book for %s", tokenID), err)
	}

	s.mu.Lock()
	s.books[tokenID] = book
	s.mu.Unlock()
	logger.Debug("order book refreshed", "token_id", tokenID, "bids", len(book.Bids), "asks", len(book.Asks))
	return book, nil
}

func (s *MarketService) Quote(ctx context.Context, tokenID string) (Quote, error) {
	book, err := s.Book(ctx, tokenID)
	if err != nil {
		return Quote{}, err
	}
	q, err := book.Quote()
	if err != nil {
		return Quote{}, apperrors.New(apperrors.ErrNotFound, err.Error(), nil)
	}
	return q, nil
}
