package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponse struct {
	code   int
	closed bool
}

func (r *fakeResponse) HTTPStatus() int { return r.code }

func (r *fakeResponse) Close() error {
	r.closed = true
	return nil
}

var errBoom = errors.New("boom")

func TestRetryAlwaysFailingFollowsBackoffSchedule(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(60, clock)
	calls := 0

	_, err := Retry(context.Background(), l, func(context.Context) (string, error) {
		calls++
		return "", errBoom
	})

	require.Error(t, err)
	assert.Equal(t, 6, calls)
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}, clock.Slept())
	assert.Equal(t, 31*time.Second, clock.TotalSlept())
	assert.True(t, apperrors.Is(err, apperrors.ErrRetriesExhausted))
	assert.ErrorIs(t, err, errBoom)

	stats := l.GetStats()
	assert.Equal(t, int64(6), stats.FailedRequests)
	assert.Equal(t, int64(0), stats.RateLimitHits)
	assert.Equal(t, 1.0, stats.AdaptiveMultiplier)
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(60, clock)
	calls := 0

	got, err := Retry(context.Background(), l, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errBoom
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3*time.Second, clock.TotalSlept())

	stats := l.GetStats()
	assert.Equal(t, int64(1), stats.SuccessfulRequests)
	assert.Equal(t, int64(2), stats.FailedRequests)
	assert.Equal(t, int64(3), stats.TotalRequests)
}

func TestRetryTreatsStatus429ResultAsRateLimit(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(60, clock)
	first := &fakeResponse{code: http.StatusTooManyRequests}
	second := &fakeResponse{code: http.StatusOK}
	responses := []*fakeResponse{first, second}

	got, err := Retry(context.Background(), l, func(context.Context) (*fakeResponse, error) {
		r := responses[0]
		responses = responses[1:]
		return r, nil
	})

	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.True(t, first.closed, "discarded response should be closed")
	assert.False(t, second.closed)
	assert.Equal(t, 0.5, l.Multiplier())
	assert.Equal(t, int64(1), l.GetStats().RateLimitHits)
}

func TestRetryTreatsServerErrorAsOrdinaryFailure(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(60, clock)
	calls := 0

	_, err := Retry(context.Background(), l, func(context.Context) (*fakeResponse, error) {
		calls++
		return &fakeResponse{code: http.StatusBadGateway}, nil
	})

	require.Error(t, err)
	assert.Equal(t, 6, calls)
	assert.Equal(t, 1.0, l.Multiplier())

	var sc StatusCoder
	require.True(t, errors.As(err, &sc))
	assert.Equal(t, http.StatusBadGateway, sc.HTTPStatus())
}

func TestRetryRecognises429Error(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(60, clock)
	calls := 0

	_, err := Retry(context.Background(), l, func(context.Context) (struct{}, error) {
		calls++
		if calls == 1 {
			return struct{}{}, &StatusError{Code: http.StatusTooManyRequests}
		}
		return struct{}{}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 0.5, l.Multiplier())
	assert.Equal(t, []time.Duration{time.Second}, clock.Slept())
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	l := newTestLimiter(60, newFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Retry(ctx, l, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errBoom
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, apperrors.Is(err, apperrors.ErrRetriesExhausted))
}

func TestRetryCustomSchedule(t *testing.T) {
	clock := newFakeClock()
	l := New("short", 60, WithClock(clock), WithLogger(logger.Discard()), WithBackoff([]time.Duration{time.Millisecond}))
	calls := 0

	_, err := Retry(context.Background(), l, func(context.Context) (int, error) {
		calls++
		return 0, errBoom
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestLimitWaitsForTokenBeforeCalling(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(60, clock)
	drain(t, l)
	start := clock.Now()

	fetch := Limit(l, func(context.Context) (string, error) {
		return "ok", nil
	})
	got, err := fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, time.Second, clock.Now().Sub(start))
	assert.Equal(t, int64(1), l.GetStats().SuccessfulRequests)
}

func TestLimitReportsAbortedWait(t *testing.T) {
	l := newTestLimiter(60, newFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false

	fetch := Limit(l, func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	_, err := fetch(ctx)

	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, apperrors.Is(err, apperrors.ErrRateLimited))
}
