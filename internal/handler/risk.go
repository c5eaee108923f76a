package handler

import (
	"net/http"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/model"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/risk"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/service"
	"github.com/gin-gonic/gin"
)

// RiskHandler exposes the risk calculator. Only can-trade and report look at
// the position book.
type RiskHandler struct {
	gate *service.TradeGate
}

func NewRiskHandler(gate *service.TradeGate) *RiskHandler {
	return &RiskHandler{gate: gate}
}

func (h *RiskHandler) CanTrade(c *gin.Context) {
	var req model.CanTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	positions := req.Positions
	if positions == nil {
		var err error
		positions, err = h.gate.Positions(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
	}

	c.JSON(http.StatusOK, h.gate.Manager().Check(positions, req.ProposedCost))
}

func (h *RiskHandler) PositionSize(c *gin.Context) {
	var req model.PositionSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	m := h.gate.Manager()
	bankroll := req.Bankroll
	if bankroll == 0 {
		bankroll = m.TotalCapital()
	}
	c.JSON(http.StatusOK, model.PositionSizeResponse{
		Sizing:   m.SizeTrade(req.MarketPrice, req.EstimatedProbability, bankroll),
		Bankroll: bankroll,
	})
}

func (h *RiskHandler) ExpectedValue(c *gin.Context) {
	var req model.ExpectedValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	c.JSON(http.StatusOK, h.gate.Manager().CalculateExpectedValue(req.MarketPrice, req.EstimatedProbability, req.TradeCost))
}

func (h *RiskHandler) CircuitBreaker(c *gin.Context) {
	var req model.CircuitBreakerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	tripped, reason := h.gate.Manager().CheckCircuitBreaker(req.StartingCapital, req.CurrentCapital)
	c.JSON(http.StatusOK, model.CircuitBreakerResponse{Tripped: tripped, Reason: reason})
}

func (h *RiskHandler) StopLoss(c *gin.Context) {
	var req model.StopLossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	c.JSON(http.StatusOK, model.StopLossResponse{
		EntryPrice: req.EntryPrice,
		Side:       req.Side,
		StopPrice:  h.gate.Manager().CalculateStopLossPrice(req.EntryPrice, risk.Side(req.Side)),
	})
}

// Report takes an optional ?bankroll= query parameter.
func (h *RiskHandler) Report(c *gin.Context) {
	bankroll, err := floatQuery(c, "bankroll")
	if err != nil {
		_ = c.Error(err)
		return
	}
	rep, err := h.gate.Report(c.Request.Context(), bankroll)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
