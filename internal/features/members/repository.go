// Package members — repository.go отвечает за операции с таблицами members и referrals.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package members

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/db/postgres"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert создаёт пользователя или обновляет имя/username.
// Город, страну и премиум не трогает.
func (r *Repository) Upsert(ctx context.Context, userID int64, username, firstName string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO members (user_id, username, first_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    updated_at = NOW()
	`, userID, username, firstName)
	if err != nil {
		return fmt.Errorf("ошибка создания/обновления пользователя: %w", err)
	}
	return nil
}

// GetByUserID возвращает пользователя. Если не найден — common.ErrUserNotFound.
func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	var m Member
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, COALESCE(username, ''), first_name,
		       COALESCE(city, ''), COALESCE(country, ''), premium_until, is_deleted,
		       created_at, updated_at
		FROM members
		WHERE user_id = $1
	`, userID).Scan(
		&m.ID, &m.UserID, &m.Username, &m.FirstName,
		&m.City, &m.Country, &m.PremiumUntil, &m.IsDeleted,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка чтения пользователя (user_id=%d): %w", userID, err)
	}
	return &m, nil
}

// SetLocation обновляет город и страну. Пустая строка очищает поле.
func (r *Repository) SetLocation(ctx context.Context, userID int64, loc Location) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE members
		SET city = NULLIF($2, ''), country = NULLIF($3, ''), updated_at = NOW()
		WHERE user_id = $1
	`, userID, loc.City, loc.Country)
	if err != nil {
		return fmt.Errorf("ошибка обновления города: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}
	return nil
}

// SetPremiumUntil выставляет срок премиума (вызов платёжного контура).
func (r *Repository) SetPremiumUntil(ctx context.Context, userID int64, until time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE members SET premium_until = $2, updated_at = NOW() WHERE user_id = $1
	`, userID, until)
	if err != nil {
		return fmt.Errorf("ошибка выдачи премиума: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}
	return nil
}

// QualifiedInviteCount возвращает число засчитанных приглашений пользователя.
func (r *Repository) QualifiedInviteCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM referrals WHERE inviter_id = $1 AND qualified
	`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта приглашений: %w", err)
	}
	return n, nil
}

// AddReferral записывает приглашение. Повторное приглашение того же
// пользователя игнорируется.
func (r *Repository) AddReferral(ctx context.Context, inviterID, inviteeID int64, qualified bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO referrals (inviter_id, invitee_id, qualified)
		VALUES ($1, $2, $3)
		ON CONFLICT (invitee_id) DO UPDATE SET qualified = referrals.qualified OR EXCLUDED.qualified
	`, inviterID, inviteeID, qualified)
	if err != nil {
		return fmt.Errorf("ошибка записи приглашения: %w", err)
	}
	return nil
}

// QualifyReferral засчитывает приглашение, по которому пришёл invitee.
func (r *Repository) QualifyReferral(ctx context.Context, inviteeID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE referrals SET qualified = TRUE WHERE invitee_id = $1 AND NOT qualified
	`, inviteeID)
	if err != nil {
		return false, fmt.Errorf("ошибка зачёта приглашения: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
