package handler

import (
	"fmt"
	"strconv"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// floatQuery reads an optional float query parameter; absent means 0.
func floatQuery(c *gin.Context, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, apperrors.NewInvalidRequest(fmt.Sprintf("invalid %s: %q", key, raw))
	}
	return v, nil
}
