// Package admin — repository.go работает с таблицами admin_sessions и admin_login_attempts.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"glowshot.ru/rating-bot/internal/db/postgres"
)

// Repository работает с админ-таблицами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `id, user_id, session_token, authenticated_at, expires_at, last_activity, is_active`

// CreateSession создаёт новую сессию администратора.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO admin_sessions (user_id, session_token, expires_at, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, authenticated_at, last_activity
	`, s.UserID, s.Token, s.ExpiresAt).Scan(&s.ID, &s.AuthenticatedAt, &s.LastActivity)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	s.IsActive = true
	return nil
}

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.AuthenticatedAt, &s.ExpiresAt, &s.LastActivity, &s.IsActive); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetActiveSession возвращает последнюю активную сессию пользователя. nil — сессии нет.
func (r *Repository) GetActiveSession(ctx context.Context, userID int64, now time.Time) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM admin_sessions
		WHERE user_id = $1 AND is_active AND expires_at > $2
		ORDER BY authenticated_at DESC
		LIMIT 1
	`, userID, now))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}
	return s, nil
}

// GetSessionByToken возвращает активную сессию по токену. nil — нет или истекла.
func (r *Repository) GetSessionByToken(ctx context.Context, token string, now time.Time) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM admin_sessions
		WHERE session_token = $1 AND is_active AND expires_at > $2
	`, token, now))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}
	return s, nil
}

// DeactivateSessions закрывает все сессии пользователя.
func (r *Repository) DeactivateSessions(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `UPDATE admin_sessions SET is_active = FALSE WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ошибка закрытия сессий: %w", err)
	}
	return nil
}

// UpdateActivity обновляет время последней активности сессии.
func (r *Repository) UpdateActivity(ctx context.Context, sessionID int64, now time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE admin_sessions SET last_activity = $2 WHERE id = $1`, sessionID, now)
	return err
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, userID int64, success bool) error {
	_, err := r.db.Exec(ctx, `INSERT INTO admin_login_attempts (user_id, success) VALUES ($1, $2)`, userID, success)
	return err
}

// CountFailedAttempts возвращает число неудачных попыток после since.
func (r *Repository) CountFailedAttempts(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE user_id = $1 AND NOT success AND attempt_time >= $2
	`, userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта попыток входа: %w", err)
	}
	return count, nil
}
