package results

import (
	"sort"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/features/scoring"
)

// rankParams — всё, что нужно чистому ранжированию.
type rankParams struct {
	Rules        scoring.Rules
	GlobalMean   float64
	Prior        int
	MinInvites   int  // Только для глобального скоупа
	Global       bool
	CooldownDays int
	Ref          string // Опорный день окна
	Limit        int
}

type scored struct {
	row   Row
	score float64
}

// rank фильтрует, оценивает и упорядочивает фото: одно лучшее фото на автора,
// порядок (балл ↓, число оценок ↓, время публикации ↑), не больше Limit мест.
func rank(rows []Row, p rankParams) []Entry {
	cooldownFrom := cooldownStart(p.Ref, p.CooldownDays)

	var survivors []scored
	for _, r := range rows {
		if r.RatingsCount < p.Rules.MinRatings || r.UniqueRaters < p.Rules.MinUniqueRaters {
			continue
		}
		if r.PendingReports > 0 {
			continue
		}
		if p.Global && p.MinInvites > 0 && r.QualifiedInvites < p.MinInvites {
			continue
		}
		// Ключи дней сравниваются как строки: формат YYYY-MM-DD
		if cooldownFrom != "" && r.LastWin != "" && r.LastWin >= cooldownFrom && r.LastWin < p.Ref {
			continue
		}
		base, ok := scoring.Score(r.WeightedSum, r.WeightedCount, p.GlobalMean, p.Prior)
		if !ok {
			continue
		}
		survivors = append(survivors, scored{
			row:   r,
			score: scoring.WithBonuses(base, r.RatingsCount, r.Comments, r.PendingReports),
		})
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.row.RatingsCount != b.row.RatingsCount {
			return a.row.RatingsCount > b.row.RatingsCount
		}
		if !a.row.CreatedAt.Equal(b.row.CreatedAt) {
			return a.row.CreatedAt.Before(b.row.CreatedAt)
		}
		return a.row.PhotoID < b.row.PhotoID
	})

	seen := make(map[int64]bool, len(survivors))
	var out []Entry
	for _, s := range survivors {
		if p.Limit > 0 && len(out) >= p.Limit {
			break
		}
		if seen[s.row.UserID] {
			continue
		}
		seen[s.row.UserID] = true
		out = append(out, Entry{
			Place:   len(out) + 1,
			PhotoID: s.row.PhotoID,
			UserID:  s.row.UserID,
			Score:   s.score,
			Payload: payloadOf(s.row),
		})
	}
	return out
}

// cooldownStart — первый день окна кулдауна [ref-days, ref). "" — кулдаун выключен.
func cooldownStart(ref string, days int) string {
	if days <= 0 || ref == "" {
		return ""
	}
	d, err := common.ParseDayKey(ref)
	if err != nil {
		return ""
	}
	return common.DayKey(d.AddDate(0, 0, -days))
}

func payloadOf(r Row) Payload {
	title := r.Title
	if title == "" {
		title = "Без названия"
	}
	return Payload{
		PhotoID:        r.PhotoID,
		FileID:         r.FileID,
		Title:          title,
		AvgRating:      r.AvgRating,
		RatingsCount:   r.RatingsCount,
		UniqueRaters:   r.UniqueRaters,
		Comments:       r.Comments,
		AuthorName:     r.AuthorName,
		AuthorUsername: r.AuthorUsername,
	}
}

// bestAuthor оставляет только первое место: автора лучшего фото.
func bestAuthor(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	return entries[:1]
}
