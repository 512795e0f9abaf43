package members

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/db/postgres/pgtest"
)

func newTestService(t *testing.T, now time.Time) (*Service, *pgtest.Seed) {
	pool := pgtest.Open(t)
	svc := NewService(NewRepository(pool))
	svc.now = func() time.Time { return now }
	return svc, pgtest.NewSeed(t, pool)
}

func TestGrantPremiumExtendsActiveSubscription(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	svc, seed := newTestService(t, now)
	ctx := context.Background()
	seed.Member(1, "", "")

	active, err := svc.IsPremiumActive(ctx, 1)
	require.NoError(t, err)
	assert.False(t, active)

	until, err := svc.GrantPremium(ctx, 1, 7)
	require.NoError(t, err)
	assert.True(t, until.Equal(now.AddDate(0, 0, 7)))

	// Второе продление считается от конца действующей подписки
	until, err = svc.GrantPremium(ctx, 1, 3)
	require.NoError(t, err)
	assert.True(t, until.Equal(now.AddDate(0, 0, 10)))

	active, err = svc.IsPremiumActive(ctx, 1)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = svc.GrantPremium(ctx, 1, 0)
	assert.ErrorIs(t, err, common.ErrInvalidDays)
	_, err = svc.GrantPremium(ctx, 404, 1)
	assert.ErrorIs(t, err, common.ErrUserNotFound)

	active, err = svc.IsPremiumActive(ctx, 404)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestQualifiedInviteCount(t *testing.T) {
	svc, seed := newTestService(t, time.Now())
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3, 4} {
		seed.Member(id, "", "")
	}

	require.NoError(t, svc.AddReferral(ctx, 1, 2, false))
	require.NoError(t, svc.AddReferral(ctx, 1, 3, false))
	require.NoError(t, svc.AddReferral(ctx, 4, 4, false))

	n, err := svc.QualifiedInviteCount(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, svc.QualifyReferral(ctx, 2))
	n, err = svc.QualifiedInviteCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.QualifiedInviteCount(ctx, 4)
	require.NoError(t, err)
	assert.Zero(t, n)
}
