package middleware

import (
	"crypto/subtle"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

const HeaderAPIKey = "X-Api-Key"

// APIKeyGuard rejects requests whose X-Api-Key does not match key. An empty
// key lets everything through.
func APIKeyGuard(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderAPIKey)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			appErr := apperrors.New(apperrors.ErrUnauthorized, "invalid API key", nil)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
			return
		}
		c.Next()
	}
}
