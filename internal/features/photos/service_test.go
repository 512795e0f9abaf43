package photos

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/db/postgres/pgtest"
)

func newTestService(t *testing.T) (*Service, *pgxpool.Pool, *pgtest.Seed) {
	pool := pgtest.Open(t)
	svc := NewService(NewRepository(pool), 72*time.Hour)
	return svc, pool, pgtest.NewSeed(t, pool)
}

func count(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), sql, args...).Scan(&n))
	return n
}

func TestDeleteRemovesDependentRows(t *testing.T) {
	svc, pool, seed := newTestService(t)
	ctx := context.Background()
	seed.Member(1, "", "")
	deleted := seed.Photo(1, "2026-10-15")
	kept := seed.Photo(1, "2026-10-15")
	seed.Exec(`INSERT INTO photo_views (photo_id, viewer_id) VALUES ($1, 9), ($2, 9)`, deleted, kept)
	seed.Exec(`
		INSERT INTO results_entries (period, period_key, scope_type, scope_key, kind, place, photo_id, user_id, score)
		VALUES ('day', '2026-10-15', 'global', 'global', 'top_photos', 1, $1, 1, 8.5),
		       ('day', '2026-10-15', 'global', 'global', 'top_photos', 2, $2, 1, 7.0)
	`, deleted, kept)

	// Чужой пользователь удалить не может
	assert.ErrorIs(t, svc.Delete(ctx, deleted, 2, false), common.ErrPhotoNotFound)

	require.NoError(t, svc.Delete(ctx, deleted, 1, false))

	p, err := svc.Get(ctx, deleted)
	require.NoError(t, err)
	assert.Equal(t, StatusDeleted, p.Status)
	assert.Zero(t, count(t, pool, `SELECT COUNT(*) FROM results_entries WHERE photo_id = $1`, deleted))
	assert.Zero(t, count(t, pool, `SELECT COUNT(*) FROM photo_views WHERE photo_id = $1`, deleted))
	assert.Equal(t, 1, count(t, pool, `SELECT COUNT(*) FROM results_entries WHERE photo_id = $1`, kept))
	assert.Equal(t, 1, count(t, pool, `SELECT COUNT(*) FROM photos WHERE id = $1 AND rank_dirty`, kept))

	// Повторное удаление — фото уже нет
	assert.ErrorIs(t, svc.Delete(ctx, deleted, 0, true), common.ErrPhotoNotFound)
}

func TestReportThresholdAndModeration(t *testing.T) {
	svc, _, seed := newTestService(t)
	ctx := context.Background()
	seed.Member(1, "", "")
	id := seed.Photo(1, "2026-10-16")

	for i := 1; i < ReportThreshold; i++ {
		n, err := svc.Report(ctx, id, int64(100+i))
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	p, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ModerationActive, p.ModerationStatus)

	n, err := svc.Report(ctx, id, 200)
	require.NoError(t, err)
	assert.Equal(t, ReportThreshold, n)
	p, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ModerationPending, p.ModerationStatus)

	_, err = svc.Moderate(ctx, id, "banned")
	assert.ErrorIs(t, err, common.ErrInvalidModeration)

	resolved, err := svc.Moderate(ctx, id, ModerationActive)
	require.NoError(t, err)
	assert.Equal(t, int64(ReportThreshold), resolved)
	pending, err := svc.PendingReports(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, pending)

	_, err = svc.Report(ctx, 999, 1)
	assert.ErrorIs(t, err, common.ErrPhotoNotFound)
}

func TestComment(t *testing.T) {
	svc, pool, seed := newTestService(t)
	ctx := context.Background()
	seed.Member(1, "", "")
	id := seed.Photo(1, "2026-10-16")

	require.NoError(t, svc.Comment(ctx, id, 2, "  отличный свет  "))
	assert.ErrorIs(t, svc.Comment(ctx, id, 2, "   "), common.ErrInvalidComment)
	assert.ErrorIs(t, svc.Comment(ctx, 999, 2, "текст"), common.ErrPhotoNotFound)
	assert.Equal(t, 1, count(t, pool, `SELECT COUNT(*) FROM comments WHERE photo_id = $1 AND text = 'отличный свет'`, id))
}
