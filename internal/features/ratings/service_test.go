package ratings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/db/postgres/pgtest"
	"glowshot.ru/rating-bot/internal/features/economy"
	"glowshot.ru/rating-bot/internal/features/settings"
)

type fixedSettings struct{ s settings.Settings }

func (f fixedSettings) GetEffectiveSettings(context.Context) settings.Settings { return f.s }

type fakeMean struct {
	mu          sync.Mutex
	mean        float64
	invalidated int
}

func (f *fakeMean) GetGlobalMean(context.Context) (float64, int64, error) { return f.mean, 0, nil }

func (f *fakeMean) Invalidate() {
	f.mu.Lock()
	f.invalidated++
	f.mu.Unlock()
}

func TestValidateVote(t *testing.T) {
	_, err := ValidateVote(0, "")
	assert.ErrorIs(t, err, common.ErrInvalidRating)
	_, err = ValidateVote(11, SourceNormal)
	assert.ErrorIs(t, err, common.ErrInvalidRating)
	_, err = ValidateVote(5, "api")
	assert.ErrorIs(t, err, common.ErrInvalidSource)

	src, err := ValidateVote(10, "")
	require.NoError(t, err)
	assert.Equal(t, SourceNormal, src)
	src, err = ValidateVote(1, SourceLink)
	require.NoError(t, err)
	assert.Equal(t, SourceLink, src)
}

func TestRankPointsOf(t *testing.T) {
	aggs := []photoAggregate{
		{WeightedSum: 40, Weight: 5, Count: 5},
		{Count: 0}, // без оценок не учитывается
	}
	// (12*7 + 40) / 17 ≈ 7.294, × log1p(5) ≈ 13.07
	assert.Equal(t, 13, rankPointsOf(aggs, 7, 12))
	assert.Equal(t, 0, rankPointsOf(nil, 7, 12))
}

type env struct {
	pool *pgxpool.Pool
	seed *pgtest.Seed
	svc  *Service
	mean *fakeMean
	eco  *economy.Service
}

func newEnv(t *testing.T, mutate func(*settings.Settings)) *env {
	pool := pgtest.Open(t)
	s := settings.Defaults()
	if mutate != nil {
		mutate(&s)
	}
	src := fixedSettings{s}
	eco := economy.NewService(pool, economy.NewRepository(pool), src)
	mean := &fakeMean{mean: 7}
	svc := NewService(pool, NewRepository(pool), eco, src, mean)
	svc.now = func() time.Time { return time.Date(2026, 10, 16, 10, 0, 0, 0, common.Moscow()) }
	return &env{pool: pool, seed: pgtest.NewSeed(t, pool), svc: svc, mean: mean, eco: eco}
}

func TestRecordVoteUpdatesCountersAndCredits(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.seed.Member(1, "", "")
	e.seed.Member(2, "", "")
	photoID := e.seed.Photo(1, "2026-10-16")

	ok, err := e.svc.RecordVote(ctx, 2, photoID, 8, "")
	require.NoError(t, err)
	assert.True(t, ok)

	var votes int
	var sum int64
	var avg float64
	require.NoError(t, e.pool.QueryRow(ctx,
		`SELECT votes_count, sum_score, avg_score FROM photos WHERE id = $1`, photoID,
	).Scan(&votes, &sum, &avg))
	assert.Equal(t, 1, votes)
	assert.Equal(t, int64(8), sum)
	assert.Equal(t, 8.0, avg)

	acc, err := e.eco.GetAccount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.Credits)
	assert.Equal(t, 1, e.mean.invalidated)

	// Повтор отклоняется и ничего не меняет
	outcome, err := e.svc.Vote(ctx, 2, photoID, 3, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	acc, err = e.eco.GetAccount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.Credits)
}

func TestRecordVoteRejections(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.seed.Member(1, "", "")
	photoID := e.seed.Photo(1, "2026-10-16")
	hidden := e.seed.Photo(1, "2026-10-16")
	e.seed.Exec(`UPDATE photos SET moderation_status = 'pending' WHERE id = $1`, hidden)

	_, err := e.svc.RecordVote(ctx, 2, photoID, 0, "")
	assert.ErrorIs(t, err, common.ErrInvalidRating)

	outcome, err := e.svc.Vote(ctx, 1, photoID, 5, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOwnPhoto, outcome)

	outcome, err = e.svc.Vote(ctx, 2, hidden, 5, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnavailable, outcome)

	outcome, err = e.svc.Vote(ctx, 2, 999999, 5, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnavailable, outcome)
}

func TestDailyAuthorCap(t *testing.T) {
	e := newEnv(t, func(s *settings.Settings) { s.DailyAuthorVoteCap = 5 })
	ctx := context.Background()
	e.seed.Member(1, "", "")

	for i := 0; i < 5; i++ {
		ok, err := e.svc.RecordVote(ctx, 2, e.seed.Photo(1, "2026-10-16"), 7, "")
		require.NoError(t, err)
		assert.True(t, ok, "оценка %d должна пройти", i+1)
	}

	outcome, err := e.svc.Vote(ctx, 2, e.seed.Photo(1, "2026-10-16"), 7, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeThrottled, outcome)

	left, err := e.svc.RemainingForAuthor(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestConcurrentVotesKeepOneRow(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.seed.Member(1, "", "")
	photoID := e.seed.Photo(1, "2026-10-16")

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := e.svc.RecordVote(ctx, 2, photoID, 6, "")
			if err == nil && ok {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)

	var rows, votes int
	require.NoError(t, e.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ratings WHERE photo_id = $1`, photoID).Scan(&rows))
	require.NoError(t, e.pool.QueryRow(ctx, `SELECT votes_count FROM photos WHERE id = $1`, photoID).Scan(&votes))
	assert.Equal(t, 1, rows)
	assert.Equal(t, 1, votes)
}

func TestAuthorRankRefreshesWhenDirty(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.seed.Member(1, "", "")
	photoID := e.seed.Photo(1, "2026-10-16")

	rank, err := e.svc.AuthorRank(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, rank.Points)
	assert.Equal(t, "beginner", rank.Rank.Code)

	for voter := int64(10); voter < 14; voter++ {
		ok, err := e.svc.RecordVote(ctx, voter, photoID, 9, "")
		require.NoError(t, err)
		require.True(t, ok)
	}

	rank, err = e.svc.AuthorRank(ctx, 1)
	require.NoError(t, err)
	assert.Positive(t, rank.Points)

	var dirty bool
	require.NoError(t, e.pool.QueryRow(ctx, `SELECT rank_dirty FROM photos WHERE id = $1`, photoID).Scan(&dirty))
	assert.False(t, dirty)

	_, err = e.svc.AuthorRank(ctx, 404)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}
