package market

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Level represents a single price level in the orderbook
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// RawLevel is a level as the CLOB API returns it.
type RawLevel struct {
	Price string
	Size  string
}

// Orderbook is an immutable snapshot of one token's book.
type Orderbook struct {
	TokenID   string
	Bids      []Level // Sorted High to Low
	Asks      []Level // Sorted Low to High
	FetchedAt time.Time
}

// NewOrderbook parses raw levels, drops empty ones and sorts both sides.
func NewOrderbook(tokenID string, bids, asks []RawLevel, fetchedAt time.Time) (*Orderbook, error) {
	b, err := parseLevels(bids)
	if err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	a, err := parseLevels(asks)
	if err != nil {
		return nil, fmt.Errorf("asks: %w", err)
	}
	sort.Slice(b, func(i, j int) bool { return b[i].Price.GreaterThan(b[j].Price) })
	sort.Slice(a, func(i, j int) bool { return a[i].Price.LessThan(a[j].Price) })
	return &Orderbook{TokenID: tokenID, Bids: b, Asks: a, FetchedAt: fetchedAt}, nil
}

func parseLevels(raw []RawLevel) ([]Level, error) {
	levels := make([]Level, 0, len(raw))
	for _, r := range raw {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", r.Price, err)
		}
		size, err := decimal.NewFromString(r.Size)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", r.Size, err)
		}
		if size.IsZero() {
			continue
		}
		levels = append(levels, Level{Price: price, Size: size})
	}
	return levels, nil
}

// Quote is the top of book reduced to what sizing needs.
type Quote struct {
	TokenID   string    `json:"token_id"`
	BestBid   float64   `json:"best_bid"`
	BestAsk   float64   `json:"best_ask"`
	Mid       float64   `json:"mid"`
	Spread    float64   `json:"spread"`
	BidDepth  float64   `json:"bid_depth"`
	AskDepth  float64   `json:"ask_depth"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Quote fails when either side of the book is empty.
func (ob *Orderbook) Quote() (Quote, error) {
	if len(ob.Bids) == 0 || len(ob.Asks) == 0 {
		return Quote{}, fmt.Errorf("one-sided book for %s", ob.TokenID)
	}
	bid := ob.Bids[0].Price
	ask := ob.Asks[0].Price
	two := decimal.NewFromInt(2)

	return Quote{
		TokenID:   ob.TokenID,
		BestBid:   bid.InexactFloat64(),
		BestAsk:   ask.InexactFloat64(),
		Mid:       bid.Add(ask).Div(two).InexactFloat64(),
		Spread:    ask.Sub(bid).InexactFloat64(),
		BidDepth:  depth(ob.Bids).InexactFloat64(),
		AskDepth:  depth(ob.Asks).InexactFloat64(),
		FetchedAt: ob.FetchedAt,
	}, nil
}

func depth(levels []Level) decimal.Decimal {
	total := decimal.Zero
	for _, l := range levels {
		total = total.Add(l.Size)
	}
	return total
}
