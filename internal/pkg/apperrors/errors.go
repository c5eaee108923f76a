package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrRiskReject       ErrorType = "RISK_REJECT"
	ErrInvalidRequest   ErrorType = "INVALID_REQUEST"
	ErrRateLimited      ErrorType = "RATE_LIMITED"
	ErrRetriesExhausted ErrorType = "RETRIES_EXHAUSTED"
	ErrUpstream         ErrorType = "UPSTREAM_ERROR"
	ErrNotFound         ErrorType = "NOT_FOUND"
	ErrUnauthorized     ErrorType = "UNAUTHORIZED"
	ErrInternal         ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewRiskReject(msg string) *AppError {
	return New(ErrRiskReject, msg, nil)
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewNotFound(msg string) *AppError {
	return New(ErrNotFound, msg, nil)
}

// NewRetriesExhausted reports the terminal failure of a retried call.
func NewRetriesExhausted(name string, attempts int, last error) *AppError {
	return New(ErrRetriesExhausted, fmt.Sprintf("%s: giving up after %d attempts", name, attempts), last)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether err carries an AppError of the given type.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrRiskReject, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUpstream, ErrRetriesExhausted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrRiskReject:
		return "Check trade parameters against risk limits."
	case ErrRateLimited:
		return "Slow down and retry later."
	case ErrRetriesExhausted:
		return "Upstream kept failing; check the upstream service before retrying."
	case ErrUnauthorized:
		return "Check the X-Api-Key header."
	default:
		return ""
	}
}
