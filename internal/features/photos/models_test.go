package photos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateable(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	base := func() *Photo {
		return &Photo{
			Status:           StatusActive,
			ModerationStatus: ModerationActive,
			RatingsEnabled:   true,
			ExpiresAt:        &future,
		}
	}

	assert.True(t, base().IsRateable(now))

	p := base()
	p.ExpiresAt = nil
	assert.True(t, p.IsRateable(now), "без срока фото не истекает")

	p = base()
	p.ExpiresAt = &past
	assert.False(t, p.IsRateable(now))

	p = base()
	p.Status = StatusDeleted
	assert.False(t, p.IsRateable(now))

	p = base()
	p.ModerationStatus = ModerationPending
	assert.False(t, p.IsRateable(now))

	p = base()
	p.RatingsEnabled = false
	assert.False(t, p.IsRateable(now))
}

func TestAverageOf(t *testing.T) {
	assert.Equal(t, 0.0, AverageOf(0, 0))
	assert.Equal(t, 0.0, AverageOf(15, 0))
	assert.Equal(t, 8.0, AverageOf(8, 1))
	assert.InDelta(t, 7.5, AverageOf(15, 2), 1e-9)
}
