package handler

import (
	"fmt"
	"net/http"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

type LimiterHandler struct {
	registry *ratelimit.Registry
}

func NewLimiterHandler(registry *ratelimit.Registry) *LimiterHandler {
	return &LimiterHandler{registry: registry}
}

func (h *LimiterHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"limiters": h.registry.Stats()})
}

func (h *LimiterHandler) Get(c *gin.Context) {
	name := c.Param("name")
	l, ok := h.registry.Get(name)
	if !ok {
		_ = c.Error(apperrors.NewNotFound(fmt.Sprintf("limiter %q not found", name)))
		return
	}
	c.JSON(http.StatusOK, l.GetStats())
}
