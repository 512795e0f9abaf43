// Package admin — вход администратора по паролю (Argon2id) и сессии.
// models.go описывает структуры сессий и попыток входа.
package admin

import "time"

// Session — активная сессия администратора. Token передаётся в HTTP как Bearer.
type Session struct {
	ID              int64     `json:"-"`
	UserID          int64     `json:"user_id"`
	Token           string    `json:"token"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	LastActivity    time.Time `json:"-"`
	IsActive        bool      `json:"-"`
}

// Защита от перебора: maxFailedAttempts неудач за lockoutWindow блокируют вход
const (
	maxFailedAttempts = 3
	lockoutWindow     = time.Hour
)
