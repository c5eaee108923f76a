package market

import "context"

type Provider interface {
	Book(ctx context.Context, tokenID string) (*Orderbook, error)
	Quote(ctx context.Context, tokenID string) (Quote, error)
}
