package handler

import (
	"net/http"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/middleware"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/model"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/risk"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/service"
	"github.com/gin-gonic/gin"
)

type PositionHandler struct {
	gate *service.TradeGate
}

func NewPositionHandler(gate *service.TradeGate) *PositionHandler {
	return &PositionHandler{gate: gate}
}

func (h *PositionHandler) List(c *gin.Context) {
	positions, err := h.gate.Positions(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions, "count": len(positions)})
}

func (h *PositionHandler) Open(c *gin.Context) {
	var req model.OpenPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	pos, decision, err := h.gate.Open(c.Request.Context(), service.Proposal{
		TokenID:  req.TokenID,
		Side:     risk.Side(req.Side),
		Price:    req.Price,
		Size:     req.Size,
		Bankroll: req.Bankroll,
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRiskReject) {
			c.Set(middleware.ContextDecision, decision)
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, model.OpenPositionResponse{Position: pos, Decision: decision})
}

func (h *PositionHandler) Close(c *gin.Context) {
	pos, err := h.gate.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pos)
}
