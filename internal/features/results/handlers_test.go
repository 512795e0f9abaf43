package results

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/features/scoring"
)

func TestParseTopArgs(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, common.Moscow())

	key, err := parseTopArgs(nil, now)
	require.NoError(t, err)
	assert.Equal(t, DayKey(scoring.ScopeGlobal, GlobalScopeKey, "2026-10-16"), key)

	key, err = parseTopArgs([]string{"2026-10-15", "city", "Нижний", "Новгород"}, now)
	require.NoError(t, err)
	assert.Equal(t, PeriodDay, key.Period)
	assert.Equal(t, "2026-10-15", key.PeriodKey)
	assert.Equal(t, scoring.ScopeCity, key.ScopeType)
	assert.Equal(t, "Нижний Новгород", key.ScopeKey)

	key, err = parseTopArgs([]string{"week", "authors"}, now)
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, key.Period)
	assert.Equal(t, "2026-W42", key.PeriodKey)
	assert.Equal(t, KindBestAuthor, key.Kind)

	key, err = parseTopArgs([]string{"all", "тег", "макро"}, now)
	require.NoError(t, err)
	assert.Equal(t, PeriodAllTime, key.PeriodKey)
	assert.Equal(t, scoring.ScopeTagEvent, key.ScopeType)

	_, err = parseTopArgs([]string{"вчера"}, now)
	assert.Error(t, err)
	_, err = parseTopArgs([]string{"city"}, now)
	assert.ErrorIs(t, err, common.ErrInvalidResultsKey)
}

func TestFormatEntries(t *testing.T) {
	key := DayKey(scoring.ScopeCity, "Казань", "2026-10-15")
	assert.Contains(t, formatEntries(key, nil), "Итоги ещё не подведены")

	text := formatEntries(key, []Entry{
		{Place: 1, Score: 8.456, Payload: Payload{Title: "Кремль", AuthorUsername: "lens", RatingsCount: 12}},
		{Place: 2, Score: 7.1, Payload: Payload{Title: "Волга", AuthorName: "Аня", RatingsCount: 9}},
	})
	assert.Contains(t, text, "(Казань)")
	assert.Contains(t, text, "1. «Кремль» · @lens · 8.46")
	assert.Contains(t, text, "2. «Волга» · Аня · 7.10")

	key.Kind = KindBestAuthor
	text = formatEntries(key, []Entry{{Place: 1, Score: 6.5, Payload: Payload{AuthorName: "Аня"}}})
	assert.Contains(t, text, "👑")
	assert.Contains(t, text, "1. Аня · 6.50")
}
