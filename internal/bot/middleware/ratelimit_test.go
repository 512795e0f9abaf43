package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow(1))
	now = now.Add(10 * time.Second)
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1), "третье сообщение в окне")
	assert.True(t, rl.Allow(2), "лимит у каждого свой")

	// Первая отметка выходит из окна
	now = now.Add(51 * time.Second)
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow(1)
	now = now.Add(30 * time.Second)
	rl.Allow(2)
	now = now.Add(40 * time.Second)
	rl.cleanup()

	assert.NotContains(t, rl.requests, int64(1))
	assert.Contains(t, rl.requests, int64(2))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow(1))
	}
}
