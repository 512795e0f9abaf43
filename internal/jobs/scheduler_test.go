package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/config"
	"glowshot.ru/rating-bot/internal/features/results"
)

type dayCall struct {
	day   string
	force bool
}

type fakeResults struct {
	days   []dayCall
	keys   []results.Key
	forced []bool
	err    error
}

func (f *fakeResults) RecalculateDay(_ context.Context, day string, force bool) (int, error) {
	f.days = append(f.days, dayCall{day, force})
	return 8, f.err
}

func (f *fakeResults) RecalculateTop(_ context.Context, key results.Key, _ int, force bool) (int, error) {
	f.keys = append(f.keys, key)
	f.forced = append(f.forced, force)
	return 1, nil
}

// dayBoard повторяет правило сервиса итогов: посчитанный день без force
// не пересчитывается и отдаёт сохранённый снимок.
type dayBoard struct {
	votes    map[string]int
	snapshot map[string]int
}

func (b *dayBoard) RecalculateDay(_ context.Context, day string, force bool) (int, error) {
	if _, computed := b.snapshot[day]; computed && !force {
		return 2, nil
	}
	b.snapshot[day] = b.votes[day]
	return 2, nil
}

func (b *dayBoard) RecalculateTop(context.Context, results.Key, int, bool) (int, error) {
	return 1, nil
}

type fakeGrants struct{ days []string }

func (f *fakeGrants) GrantDailyCredits(_ context.Context, day string) (int64, error) {
	f.days = append(f.days, day)
	return 3, nil
}

type fakeArchiver struct{ calls int }

func (f *fakeArchiver) ArchiveExpired(context.Context) (int64, error) {
	f.calls++
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JobsResultsSpec:     "5 0 * * *",
		JobsIntradayResults: "*/30 * * * *",
		JobsDailyGrantSpec:  "0 0 * * *",
		JobsArchiveSpec:     "15 * * * *",
	}
}

func newTestScheduler(now time.Time) (*Scheduler, *fakeResults, *fakeGrants, *[]string) {
	res := &fakeResults{}
	grants := &fakeGrants{}
	var purged []string
	s := NewScheduler(testConfig(), res, grants, &fakeArchiver{}, func(_ context.Context, before string) (int64, error) {
		purged = append(purged, before)
		return 0, nil
	})
	s.now = func() time.Time { return now }
	return s, res, grants, &purged
}

func TestCloseYesterday(t *testing.T) {
	// Пятница: только дневные итоги
	friday := time.Date(2026, 10, 16, 0, 5, 0, 0, common.Moscow())
	s, res, _, _ := newTestScheduler(friday)
	require.NoError(t, s.closeYesterday(context.Background()))
	assert.Equal(t, []dayCall{{"2026-10-15", true}}, res.days)
	assert.Empty(t, res.keys)

	// Понедельник: плюс прошлая неделя и всё время
	monday := time.Date(2026, 10, 19, 0, 5, 0, 0, common.Moscow())
	s, res, _, _ = newTestScheduler(monday)
	require.NoError(t, s.closeYesterday(context.Background()))
	assert.Equal(t, []dayCall{{"2026-10-18", true}}, res.days)
	require.Len(t, res.keys, 4)
	assert.Equal(t, "2026-W42", res.keys[0].PeriodKey)
	assert.Equal(t, results.PeriodAllTime, res.keys[3].Period)
	assert.Equal(t, []bool{true, true, true, true}, res.forced)
}

func TestCloseYesterdayCountsVotesAfterLastRefresh(t *testing.T) {
	board := &dayBoard{votes: map[string]int{}, snapshot: map[string]int{}}
	s := NewScheduler(testConfig(), board, &fakeGrants{}, &fakeArchiver{},
		func(context.Context, string) (int64, error) { return 0, nil })
	ctx := context.Background()

	s.now = func() time.Time { return time.Date(2026, 10, 15, 23, 30, 0, 0, common.Moscow()) }
	board.votes["2026-10-15"] = 100
	require.NoError(t, s.refreshToday(ctx))
	require.Equal(t, 100, board.snapshot["2026-10-15"])

	// Последние полчаса дня
	board.votes["2026-10-15"] = 140

	s.now = func() time.Time { return time.Date(2026, 10, 16, 0, 5, 0, 0, common.Moscow()) }
	require.NoError(t, s.closeYesterday(ctx))
	assert.Equal(t, 140, board.snapshot["2026-10-15"])
}

func TestCloseYesterdayStopsOnError(t *testing.T) {
	monday := time.Date(2026, 10, 19, 0, 5, 0, 0, common.Moscow())
	s, res, _, _ := newTestScheduler(monday)
	res.err = errors.New("boom")
	assert.Error(t, s.closeYesterday(context.Background()))
	assert.Empty(t, res.keys)
}

func TestDailyJobs(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, common.Moscow())
	s, res, grants, purged := newTestScheduler(now)
	ctx := context.Background()

	require.NoError(t, s.refreshToday(ctx))
	assert.Equal(t, []dayCall{{"2026-10-16", true}}, res.days)

	require.NoError(t, s.dailyGrant(ctx))
	assert.Equal(t, []string{"2026-10-16"}, grants.days)

	require.NoError(t, s.purgeThrottle(ctx))
	assert.Equal(t, []string{"2026-10-09"}, *purged)

	require.NoError(t, s.archive(ctx))
	assert.Equal(t, 1, s.archiver.(*fakeArchiver).calls)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s, _, _, _ := newTestScheduler(time.Now())
	s.cfg.JobsArchiveSpec = "каждый час"
	assert.Error(t, s.Start(context.Background()))
}

func TestStartAndStop(t *testing.T) {
	s, _, _, _ := newTestScheduler(time.Now())
	s.cfg.JobsIntradayResults = ""
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 4)
	s.Stop()
}
