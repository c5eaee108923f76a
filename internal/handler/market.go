package handler

import (
	"net/http"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/market"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/model"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/service"
	"github.com/gin-gonic/gin"
)

type MarketHandler struct {
	quotes market.Provider
	gate   *service.TradeGate
}

func NewMarketHandler(quotes market.Provider, gate *service.TradeGate) *MarketHandler {
	return &MarketHandler{quotes: quotes, gate: gate}
}

func (h *MarketHandler) Quote(c *gin.Context) {
	q, err := h.quotes.Quote(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Size sizes a trade at the current mid. Requires ?probability=, takes an
// optional ?bankroll=.
func (h *MarketHandler) Size(c *gin.Context) {
	if c.Query("probability") == "" {
		_ = c.Error(apperrors.NewInvalidRequest("probability is required"))
		return
	}
	prob, err := floatQuery(c, "probability")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if prob > 1 {
		_ = c.Error(apperrors.NewInvalidRequest("probability must be within [0,1]"))
		return
	}
	bankroll, err := floatQuery(c, "bankroll")
	if err != nil {
		_ = c.Error(err)
		return
	}

	q, err := h.quotes.Quote(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	m := h.gate.Manager()
	if bankroll == 0 {
		bankroll = m.TotalCapital()
	}
	c.JSON(http.StatusOK, model.MarketSizeResponse{
		TokenID: q.TokenID,
		Mid:     q.Mid,
		Sizing:  m.SizeTrade(q.Mid, prob, bankroll),
	})
}
