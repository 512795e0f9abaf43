// Package economy — кредитный леджер: кредиты за оценки, конвертация
// кредитов в показы и списание показа за каждую выдачу фото в ленте.
// models.go описывает счёт пользователя и журнал движений.
package economy

import "time"

// Account — экономический счёт пользователя. Оба баланса всегда ≥ 0.
type Account struct {
	UserID             int64      `json:"user_id"`
	Credits            int64      `json:"credits"`     // Грубая валюта: +1 за оценку
	ShowTokens         int64      `json:"show_tokens"` // Тонкая валюта: −1 за показ
	LastActiveAt       *time.Time `json:"last_active_at,omitempty"`
	CountersDay        string     `json:"counters_day"` // День, к которому относятся счётчики ниже
	VotesToday         int        `json:"votes_today"`
	HappyVotesToday    int        `json:"happy_votes_today"`
	ImpressionsToday   int        `json:"impressions_today"`
	TotalCreditsEarned int64      `json:"total_credits_earned"`
	TotalTokensSpent   int64      `json:"total_tokens_spent"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Funded сообщает, может ли счёт оплатить хотя бы один показ.
func (a *Account) Funded() bool {
	return a.Credits+a.ShowTokens > 0
}

// LogEntry — одна запись журнала economy_log.
type LogEntry struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Kind         string    `json:"kind"`
	CreditsDelta int64     `json:"credits_delta"`
	TokensDelta  int64     `json:"tokens_delta"`
	Note         string    `json:"note"`
	CreatedAt    time.Time `json:"created_at"`
}

// Типы движений в журнале
const (
	KindVoteReward = "vote_reward"     // +кредит за оценку
	KindConvert    = "convert"         // кредит → показы
	KindImpression = "impression"      // −показ за выдачу в ленте
	KindAdminGive  = "admin_give"      // Выдача админом
	KindAdminTake  = "admin_take"      // Изъятие админом
	KindGrantAll   = "admin_grant_all" // Выдача всем
	KindResetAll   = "admin_reset"     // Обнуление всех балансов
	KindDailyGrant = "daily_grant"     // Ежедневное начисление
)
