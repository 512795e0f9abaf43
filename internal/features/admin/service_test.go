package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/config"
	"glowshot.ru/rating-bot/internal/db/postgres/pgtest"
)

func newTestService(t *testing.T) *Service {
	pool := pgtest.Open(t)
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	return NewService(NewRepository(pool), &config.Config{
		AdminIDs:          []int64{1},
		AdminPasswordHash: hash,
		AdminSessionTTL:   time.Hour,
	})
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, 2, "correct horse")
	assert.ErrorIs(t, err, common.ErrNotAdmin)

	session, err := svc.Login(ctx, 1, " correct horse ")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.True(t, svc.HasActiveSession(ctx, 1))

	got, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)

	_, err = svc.Authenticate(ctx, "bogus")
	assert.ErrorIs(t, err, common.ErrSessionExpired)

	require.NoError(t, svc.Logout(ctx, 1))
	_, err = svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, common.ErrSessionExpired)
	assert.False(t, svc.HasActiveSession(ctx, 1))
}

func TestSessionExpires(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, 1, "correct horse")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, common.ErrSessionExpired)
}

func TestLoginLockout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < maxFailedAttempts; i++ {
		_, err := svc.Login(ctx, 1, "wrong")
		assert.ErrorIs(t, err, common.ErrWrongPassword)
	}
	_, err := svc.Login(ctx, 1, "correct horse")
	assert.ErrorIs(t, err, common.ErrTooManyAttempts)

	// Через час блокировка снимается
	svc.now = func() time.Time { return time.Now().Add(lockoutWindow + time.Minute) }
	_, err = svc.Login(ctx, 1, "correct horse")
	assert.NoError(t, err)
}
