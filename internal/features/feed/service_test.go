package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/config"
	"glowshot.ru/rating-bot/internal/db/postgres/pgtest"
	"glowshot.ru/rating-bot/internal/features/economy"
	"glowshot.ru/rating-bot/internal/features/settings"
)

type fixedSettings struct{ s settings.Settings }

func (f fixedSettings) GetEffectiveSettings(context.Context) settings.Settings { return f.s }

// fakeRand возвращает заданные значения.
type fakeRand struct {
	f float64
	i int
}

func (r fakeRand) Float64() float64 { return r.f }
func (r fakeRand) Intn(n int) int   { return r.i % n }

type env struct {
	pool *pgxpool.Pool
	seed *pgtest.Seed
	svc  *Service
	eco  *economy.Service
}

func newEnv(t *testing.T, mode string, rnd RandSource, mutate func(*settings.Settings)) *env {
	pool := pgtest.Open(t)
	s := settings.Defaults()
	if mutate != nil {
		mutate(&s)
	}
	src := fixedSettings{s}
	eco := economy.NewService(pool, economy.NewRepository(pool), src)
	svc := NewService(pool, NewRepository(pool), eco, src, rnd, mode)
	svc.now = func() time.Time { return time.Date(2026, 10, 16, 10, 0, 0, 0, common.Moscow()) }
	return &env{pool: pool, seed: pgtest.NewSeed(t, pool), svc: svc, eco: eco}
}

func TestEmptyFeedReturnsNil(t *testing.T) {
	e := newEnv(t, config.FeedModeFunded, fakeRand{f: 0.99}, nil)
	p, err := e.svc.NextPhotoForViewer(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFundedPassConsumesImpression(t *testing.T) {
	e := newEnv(t, config.FeedModeFunded, fakeRand{f: 0.99}, nil)
	ctx := context.Background()
	e.seed.Member(1, "", "")
	e.seed.Member(2, "", "")
	e.seed.Photo(1, "2026-10-16")
	funded := e.seed.Photo(2, "2026-10-16")
	e.seed.Account(2, 1, 0)

	sel, err := e.svc.Next(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, funded, sel.Photo.ID)
	assert.Equal(t, PassFunded, sel.Pass)

	acc, err := e.eco.GetAccount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.Credits)
	assert.Equal(t, int64(1), acc.ShowTokens)

	var views int
	require.NoError(t, e.pool.QueryRow(ctx, `SELECT views_count FROM photos WHERE id = $1`, funded).Scan(&views))
	assert.Equal(t, 1, views)

	// Второй запрос: оплаченное уже просмотрено, остаётся неоплаченное
	sel, err = e.svc.Next(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, PassAny, sel.Pass)
	assert.NotEqual(t, funded, sel.Photo.ID)

	// Третий: больше нечего показать
	sel, err = e.svc.Next(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, sel)
}

func TestOwnAndRatedPhotosAreSkipped(t *testing.T) {
	e := newEnv(t, config.FeedModeFunded, fakeRand{f: 0.99}, nil)
	ctx := context.Background()
	e.seed.Member(1, "", "")
	e.seed.Member(2, "", "")
	e.seed.Photo(1, "2026-10-16")
	rated := e.seed.Photo(2, "2026-10-16")
	e.seed.Exec(`INSERT INTO ratings (photo_id, user_id, value) VALUES ($1, 1, 7)`, rated)

	p, err := e.svc.NextPhotoForViewer(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestTailPass(t *testing.T) {
	e := newEnv(t, config.FeedModeFunded, fakeRand{f: 0}, func(s *settings.Settings) {
		s.TailProbability = 0.05
		s.MinVotesForNormalFeed = 5
	})
	ctx := context.Background()
	e.seed.Member(1, "", "")
	e.seed.Member(2, "", "")
	e.seed.Photo(1, "2026-10-16")
	tail := e.seed.Photo(2, "2026-10-16")
	e.seed.Account(1, 5, 0)
	e.seed.Exec(`UPDATE photos SET votes_count = 10 WHERE user_id = 1`)

	sel, err := e.svc.Next(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, PassTail, sel.Pass)
	assert.Equal(t, tail, sel.Photo.ID)

	acc, err := e.eco.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), acc.Credits, "хвост не списывает показы")
}

func TestExhaustedAuthorIsSkipped(t *testing.T) {
	e := newEnv(t, config.FeedModeFunded, fakeRand{f: 0.99}, nil)
	ctx := context.Background()
	e.seed.Member(1, "", "")
	e.seed.Photo(1, "2026-10-16")
	e.seed.Photo(1, "2026-10-16")
	e.seed.Account(1, 0, 1)

	first, err := e.svc.Next(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, PassFunded, first.Pass)

	second, err := e.svc.Next(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, PassAny, second.Pass)

	acc, err := e.eco.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.ShowTokens)
}

func TestConcurrentViewersNeverOverspend(t *testing.T) {
	e := newEnv(t, config.FeedModeFunded, fakeRand{f: 0.99}, nil)
	ctx := context.Background()
	e.seed.Member(1, "", "")
	for i := 0; i < 6; i++ {
		e.seed.Photo(1, "2026-10-16")
	}
	e.seed.Account(1, 0, 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	funded := 0
	for viewer := int64(100); viewer < 110; viewer++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			sel, err := e.svc.Next(ctx, v)
			if err == nil && sel != nil && sel.Pass == PassFunded {
				mu.Lock()
				funded++
				mu.Unlock()
			}
		}(viewer)
	}
	wg.Wait()

	// Зритель, у которого все кандидаты были заняты, уходит в общий проход,
	// поэтому оплаченных выдач может быть меньше трёх, но не больше
	assert.GreaterOrEqual(t, funded, 1)
	assert.LessOrEqual(t, funded, 3)
	acc, err := e.eco.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3-funded), acc.ShowTokens)
	assert.Equal(t, int64(0), acc.Credits)
}

func TestRotationServesRestEveryNth(t *testing.T) {
	e := newEnv(t, config.FeedModeRotation, fakeRand{f: 0.99}, func(s *settings.Settings) {
		s.RestEveryN = 2
	})
	ctx := context.Background()
	e.seed.Member(1, "", "")
	e.seed.Member(2, "", "")
	e.seed.Photo(1, "2026-10-16")
	e.seed.Photo(2, "2026-10-16")
	rest := e.seed.Photo(2, "2026-10-16")
	e.seed.Exec(`UPDATE photos SET ratings_enabled = FALSE WHERE id = $1`, rest)

	first, err := e.svc.Next(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, PassRotation, first.Pass)
	assert.Equal(t, BucketFresh.String(), first.Bucket)

	second, err := e.svc.Next(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, PassRest, second.Pass)
	assert.Empty(t, second.Bucket)
	assert.Equal(t, rest, second.Photo.ID)

	// Третий шаг избегает автора первого фото, пока есть другие
	third, err := e.svc.Next(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.NotEqual(t, first.Photo.ID, third.Photo.ID)

	var seq int64
	require.NoError(t, e.pool.QueryRow(ctx, `SELECT seq FROM feed_rotation WHERE viewer_id = 9`).Scan(&seq))
	assert.Equal(t, int64(3), seq)
}
