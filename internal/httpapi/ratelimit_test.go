package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rl := newRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("10.0.0.1"))
	}
	assert.False(t, rl.allow("10.0.0.1"))

	// Other clients have their own bucket.
	assert.True(t, rl.allow("10.0.0.2"))
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	t.Parallel()

	rl := newRateLimiter(10, time.Minute)
	require.Equal(t, time.Minute, rl.staleAfter())

	stale := time.Now().Add(-2 * time.Minute)
	rl.buckets["10.0.0.1"] = &bucket{tokens: 0, lastSeen: stale}
	rl.buckets["10.0.0.2"] = &bucket{tokens: 5, lastSeen: time.Now()}
	rl.lastSweep = stale

	assert.True(t, rl.allow("10.0.0.3"))

	_, ok := rl.buckets["10.0.0.1"]
	assert.False(t, ok, "idle bucket should be evicted")
	_, ok = rl.buckets["10.0.0.2"]
	assert.True(t, ok, "active bucket should survive the sweep")
	_, ok = rl.buckets["10.0.0.3"]
	assert.True(t, ok)
}

func TestRateLimiterSweepIsThrottled(t *testing.T) {
	t.Parallel()

	rl := newRateLimiter(10, time.Minute)
	rl.buckets["10.0.0.1"] = &bucket{tokens: 0, lastSeen: time.Now().Add(-2 * time.Minute)}

	// lastSweep is recent, so even a stale bucket stays until the next
	// sweep window opens.
	assert.True(t, rl.allow("10.0.0.2"))
	_, ok := rl.buckets["10.0.0.1"]
	assert.True(t, ok)
}
