// Package ratings — запись оценок и производные от них данные:
// денормализованные счётчики фото, суточный лимит на автора, кредиты
// голосующему и кэш ранга автора.
package ratings

import (
	"time"

	"glowshot.ru/rating-bot/internal/features/scoring"
)

// Источники оценки
const (
	SourceNormal = "normal" // Из ленты
	SourceLink   = "link"   // По внешней ссылке, учитывается с пониженным весом
)

// Outcome — исход попытки оценить фото.
type Outcome string

const (
	OutcomeAccepted    Outcome = "ok"
	OutcomeUnavailable Outcome = "unavailable" // Нет фото, удалено, не одобрено или оценки выключены
	OutcomeOwnPhoto    Outcome = "own_photo"
	OutcomeThrottled   Outcome = "throttled" // Исчерпан дневной лимит на автора
	OutcomeDuplicate   Outcome = "duplicate" // Уже оценено
)

// Vote — сохранённая оценка.
type Vote struct {
	ID        int64     `json:"id"`
	PhotoID   int64     `json:"photo_id"`
	UserID    int64     `json:"user_id"`
	Value     int       `json:"value"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthorRank — ранг автора по последним фото.
type AuthorRank struct {
	UserID    int64        `json:"user_id"`
	Points    int          `json:"points"`
	Rank      scoring.Rank `json:"rank"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// photoAggregate — взвешенные суммы оценок одного фото.
type photoAggregate struct {
	PhotoID     int64
	WeightedSum float64
	Weight      float64
	Count       int
}
