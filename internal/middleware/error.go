package middleware

import (
	"errors"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ContextDecision holds a risk decision a handler wants rendered next to its
// error, so clients can branch on the rejection code.
const ContextDecision = "risk_decision"

type errorBody struct {
	*apperrors.AppError
	RequestID string `json:"request_id,omitempty"`
	Decision  any    `json:"decision,omitempty"`
}

// ErrorHandler renders the last error attached to the context as an AppError
// body. Unknown errors become INTERNAL_ERROR.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			appErr = apperrors.New(apperrors.ErrInternal, err.Error(), err)
		}
		reqID := c.GetString(ContextRequestID)
		decision, hasDecision := c.Get(ContextDecision)

		logFields := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"code", appErr.Type,
			"request_id", reqID,
		}
		if hasDecision {
			logFields = append(logFields, "decision", decision)
		}

		switch {
		case appErr.HTTPStatus >= 500:
			logger.LogError(c.Request.Context(), appErr, "request failed", logFields...)
		case appErr.Type == apperrors.ErrRiskReject:
			logger.Info(appErr.Message, logFields...)
		default:
			logger.Warn(appErr.Message, logFields...)
		}

		body := errorBody{AppError: appErr, RequestID: reqID}
		if hasDecision {
			body.Decision = decision
		}
		c.JSON(appErr.HTTPStatus, body)
	}
}
