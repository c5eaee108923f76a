package model

import "github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/risk"

// CanTradeRequest checks a proposed cost against a position list. When
// Positions is omitted the server's own book is used.
type CanTradeRequest struct {
	Positions    []risk.Position `json:"positions"`
	ProposedCost float64         `json:"proposed_cost" binding:"gte=0"`
}

type PositionSizeRequest struct {
	MarketPrice          float64 `json:"market_price" binding:"gt=0,lt=1"`
	EstimatedProbability float64 `json:"estimated_probability" binding:"gte=0,lte=1"`
	Bankroll             float64 `json:"bankroll" binding:"gte=0"` // 0 = total capital
}

type PositionSizeResponse struct {
	risk.Sizing
	Bankroll float64 `json:"bankroll"`
}

type ExpectedValueRequest struct {
	MarketPrice          float64 `json:"market_price" binding:"gt=0,lt=1"`
	EstimatedProbability float64 `json:"estimated_probability" binding:"gte=0,lte=1"`
	TradeCost            float64 `json:"trade_cost" binding:"gt=0"`
}

type CircuitBreakerRequest struct {
	StartingCapital float64 `json:"starting_capital"`
	CurrentCapital  float64 `json:"current_capital"`
}

type CircuitBreakerResponse struct {
	Tripped bool   `json:"tripped"`
	Reason  string `json:"reason"`
}

type StopLossRequest struct {
	EntryPrice float64 `json:"entry_price" binding:"gt=0,lt=1"`
	Side       string  `json:"side" binding:"required,oneof=YES NO"`
}

type StopLossResponse struct {
	EntryPrice float64 `json:"entry_price"`
	Side       string  `json:"side"`
	StopPrice  float64 `json:"stop_price"`
}

// OpenPositionRequest is the body of POST /v1/positions.
type OpenPositionRequest struct {
	TokenID  string  `json:"token_id" binding:"required"`
	Side     string  `json:"side" binding:"required,oneof=YES NO"`
	Price    float64 `json:"price" binding:"gt=0,lt=1"`
	Size     float64 `json:"size" binding:"gt=0"`
	// Current capital, measured by the circuit breaker against the starting
	// capital.
	Bankroll float64 `json:"bankroll" binding:"gt=0"`
}

type OpenPositionResponse struct {
	Position risk.Position `json:"position"`
	Decision risk.Decision `json:"decision"`
}

// MarketSizeResponse sizes a trade against the live mid price.
type MarketSizeResponse struct {
	TokenID string      `json:"token_id"`
	Mid     float64     `json:"mid"`
	Sizing  risk.Sizing `json:"sizing"`
}
