// Package members хранит пользователей и их профильные данные, которые
// движку оценок нужны только на чтение: город, страна, премиум, приглашения.
// models.go описывает структуры данных таблиц members и referrals.
package members

import "time"

// Member представляет пользователя в базе данных.
// Запись создаётся при первом обращении к боту или HTTP API.
type Member struct {
	ID           int64      `db:"id"`            // Автоинкрементный ID записи в БД
	UserID       int64      `db:"user_id"`       // Telegram user ID (уникальный)
	Username     string     `db:"username"`      // @username (может быть пустым)
	FirstName    string     `db:"first_name"`    // Имя пользователя
	City         string     `db:"city"`          // Город (пусто, если не указан)
	Country      string     `db:"country"`       // Страна (пусто, если не указана)
	PremiumUntil *time.Time `db:"premium_until"` // До какого момента действует премиум
	IsDeleted    bool       `db:"is_deleted"`    // Мягкое удаление
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// IsPremiumAt сообщает, активен ли премиум в момент now.
func (m *Member) IsPremiumAt(now time.Time) bool {
	return m.PremiumUntil != nil && m.PremiumUntil.After(now)
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username — возвращает его, иначе — имя.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	return m.FirstName
}

// Location — город и страна пользователя.
type Location struct {
	City    string
	Country string
}
