package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_FirstRequestAlwaysAllowedWithinBurst(t *testing.T) {
	h := NewHostLimiter(1, 2)
	assert.True(t, h.Allow("example.com"))
	assert.True(t, h.Allow("example.com"))
}

func TestAllow_DifferentHostsHaveIndependentBuckets(t *testing.T) {
	h := NewHostLimiter(1, 1)
	assert.True(t, h.Allow("a.example.com"))
	assert.True(t, h.Allow("b.example.com"))
}

func TestWait_RespectsContextCancellation(t *testing.T) {
	h := NewHostLimiter(0.001, 1)
	h.Allow("example.com") // drain the single burst token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := h.Wait(ctx, "example.com")
	assert.Error(t, err)
}

func TestSetCrawlDelay_SlowsDownAnExistingLimiter(t *testing.T) {
	h := NewHostLimiter(100, 5)
	require.True(t, h.Allow("example.com")) // materializes the limiter at 100 rps

	h.SetCrawlDelay("example.com", time.Second) // implies 1 rps, slower than 100

	l := h.limiterFor("example.com")
	assert.InDelta(t, 1.0, float64(l.Limit()), 0.001)
}

func TestSetCrawlDelay_IgnoredWhenFasterThanDefault(t *testing.T) {
	h := NewHostLimiter(1, 5)
	h.SetCrawlDelay("example.com", 10*time.Millisecond) // implies 100 rps, faster than default 1

	l := h.limiterFor("example.com")
	assert.InDelta(t, 1.0, float64(l.Limit()), 0.001)
}

func TestNewHostLimiter_ClampsNonPositiveBurstToOne(t *testing.T) {
	h := NewHostLimiter(1, 0)
	assert.Equal(t, 1, h.burst)
}
