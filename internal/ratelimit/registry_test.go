package ratelimit

import (
	"testing"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreateReturnsSameLimiter(t *testing.T) {
	r := NewRegistry(WithLogger(logger.Discard()))

	a := r.GetOrCreate("polymarket", 60)
	b := r.GetOrCreate("polymarket", 120)

	assert.Same(t, a, b)
	assert.Equal(t, 60, b.RequestsPerMinute())

	got, ok := r.Get("polymarket")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistryStatsSortedByName(t *testing.T) {
	r := NewRegistry(WithLogger(logger.Discard()))
	r.GetOrCreate("twitter", 15)
	r.GetOrCreate("polymarket", 60)

	stats := r.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "polymarket", stats[0].Name)
	assert.Equal(t, "twitter", stats[1].Name)
	assert.Equal(t, 15, stats[1].RequestsPerMinute)
}
