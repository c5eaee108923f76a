package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/metrics"
)

// StatusCoder is implemented by results and errors that carry an HTTP status.
// Callers adapt their client's response type to it so Retry can tell a 429
// from an ordinary failure.
type StatusCoder interface {
	HTTPStatus() int
}

// StatusError is a failed HTTP status turned into an error.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
}

func (e *StatusError) HTTPStatus() int { return e.Code }

// IsRateLimited reports whether err carries HTTP 429.
func IsRateLimited(err error) bool {
	var sc StatusCoder
	return errors.As(err, &sc) && sc.HTTPStatus() == http.StatusTooManyRequests
}

// Retry calls fn, retrying failures through the limiter's backoff schedule.
// A result implementing StatusCoder with status >= 400 counts as a failure
// (429 as a rate-limit signal) and is closed if it implements io.Closer.
// Once the schedule is exhausted the last failure is returned wrapped in a
// RETRIES_EXHAUSTED AppError. Retry does not take a token; see Limit.
func Retry[T any](ctx context.Context, l *Limiter, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := len(l.backoff) + 1

	for attempt := 0; attempt < attempts; attempt++ {
		started := l.clock.Now()
		result, err := fn(ctx)
		if err == nil {
			err = statusFailure(result)
		}
		if err == nil {
			l.RecordSuccess(l.clock.Now().Sub(started))
			return result, nil
		}

		l.RecordFailure(IsRateLimited(err))
		lastErr = err
		if attempt == attempts-1 {
			break
		}

		delay := l.backoff[attempt]
		metrics.LimiterRetries.WithLabelValues(l.name).Inc()
		l.log.Warn("call failed, backing off",
			"attempt", attempt+1,
			"delay", delay.String(),
			"rate_limited", IsRateLimited(err),
			"error", err.Error(),
		)
		if sleepErr := l.clock.Sleep(ctx, delay); sleepErr != nil {
			return zero, fmt.Errorf("%s: retry aborted: %w", l.name, sleepErr)
		}
	}

	l.log.Error("retries exhausted", "attempts", attempts, "error", lastErr.Error())
	return zero, apperrors.NewRetriesExhausted(l.name, attempts, lastErr)
}

// Limit wraps fn so every call first waits for a token and then runs through
// Retry. It is the entry point most callers need.
func Limit[T any](l *Limiter, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		if !l.Wait(ctx, 0) {
			var zero T
			return zero, apperrors.New(apperrors.ErrRateLimited, l.name+": wait for token aborted", ctx.Err())
		}
		return Retry(ctx, l, fn)
	}
}

func statusFailure(result any) error {
	sc, ok := result.(StatusCoder)
	if !ok || sc == nil {
		return nil
	}
	code := sc.HTTPStatus()
	if code < http.StatusBadRequest {
		return nil
	}
	if closer, ok := result.(io.Closer); ok {
		_ = closer.Close()
	}
	return &StatusError{Code: code}
}
