// Package photos — публикация, жизненный цикл и чтение фотографий.
// Денормализованные счётчики (votes_count/sum_score/avg_score) здесь только
// читаются: менять их может лишь агрегатор оценок.
package photos

import "time"

// Статусы жизненного цикла фото
const (
	StatusActive   = "active"   // В ленте
	StatusArchived = "archived" // Срок вышел, итоги посчитаны
	StatusDeleted  = "deleted"  // Мягко удалено владельцем или модератором
)

// Статусы модерации
const (
	ModerationActive   = "active"   // Одобрено
	ModerationPending  = "pending"  // Ждёт проверки
	ModerationRejected = "rejected" // Отклонено
)

// Photo — опубликованная фотография.
type Photo struct {
	ID               int64      `db:"id" json:"id"`
	UserID           int64      `db:"user_id" json:"user_id"`
	FileID           string     `db:"file_id" json:"file_id"`
	Title            string     `db:"title" json:"title"`
	Tag              string     `db:"tag" json:"tag,omitempty"`
	Status           string     `db:"status" json:"status"`
	ModerationStatus string     `db:"moderation_status" json:"moderation_status"`
	RatingsEnabled   bool       `db:"ratings_enabled" json:"ratings_enabled"`
	DayKey           string     `db:"day_key" json:"day_key"` // Когорта: день публикации по Москве
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt        *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	VotesCount       int        `db:"votes_count" json:"votes_count"`
	SumScore         int64      `db:"sum_score" json:"sum_score"`
	AvgScore         float64    `db:"avg_score" json:"avg_score"`
	ViewsCount       int        `db:"views_count" json:"views_count"`
}

// IsRateable сообщает, можно ли оценивать фото в момент now.
func (p *Photo) IsRateable(now time.Time) bool {
	if p.Status != StatusActive || p.ModerationStatus != ModerationActive || !p.RatingsEnabled {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

// AverageOf — инвариант счётчиков: среднее при votes>0, иначе 0.
func AverageOf(sum int64, votes int) float64 {
	if votes <= 0 {
		return 0
	}
	return float64(sum) / float64(votes)
}

// PublishRequest — данные для публикации.
type PublishRequest struct {
	UserID         int64
	FileID         string
	Title          string
	Tag            string
	RatingsEnabled bool
}
