// Package economy — repository.go: SQL для economy_accounts, economy_log
// и economy_daily_grants. Методы, которые меняют счёт, принимают DBTX,
// чтобы выполняться внутри транзакции вызывающего.
package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"glowshot.ru/rating-bot/internal/db/postgres"
)

const accountColumns = `user_id, credits, show_tokens, last_active_at, COALESCE(counters_day, ''),
	votes_today, happy_votes_today, impressions_today, total_credits_earned,
	total_tokens_spent, updated_at`

// Repository работает со счетами и журналом.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий экономики.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanAccount(row interface{ Scan(...any) error }) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.UserID, &a.Credits, &a.ShowTokens, &a.LastActiveAt, &a.CountersDay,
		&a.VotesToday, &a.HappyVotesToday, &a.ImpressionsToday, &a.TotalCreditsEarned,
		&a.TotalTokensSpent, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Get возвращает счёт без блокировки. Для отсутствующего счёта — нулевой.
func (r *Repository) Get(ctx context.Context, userID int64) (*Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM economy_accounts WHERE user_id = $1`, userID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return &Account{UserID: userID}, nil
		}
		return nil, fmt.Errorf("ошибка чтения счёта: %w", err)
	}
	return a, nil
}

// LockOrCreate создаёт счёт при необходимости и блокирует его строку.
func (r *Repository) LockOrCreate(ctx context.Context, q postgres.DBTX, userID int64) (*Account, error) {
	if _, err := q.Exec(ctx, `
		INSERT INTO economy_accounts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return nil, fmt.Errorf("ошибка создания счёта: %w", err)
	}
	return r.Lock(ctx, q, userID)
}

// Lock блокирует существующий счёт. Возвращает nil, nil если счёта нет.
func (r *Repository) Lock(ctx context.Context, q postgres.DBTX, userID int64) (*Account, error) {
	a, err := scanAccount(q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM economy_accounts WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка блокировки счёта: %w", err)
	}
	return a, nil
}

// Save записывает балансы и счётчики заблокированного счёта.
func (r *Repository) Save(ctx context.Context, q postgres.DBTX, a *Account, touch bool) error {
	_, err := q.Exec(ctx, `
		UPDATE economy_accounts SET
			credits = $2, show_tokens = $3, counters_day = NULLIF($4, ''),
			votes_today = $5, happy_votes_today = $6, impressions_today = $7,
			total_credits_earned = $8, total_tokens_spent = $9,
			last_active_at = CASE WHEN $10 THEN NOW() ELSE last_active_at END,
			updated_at = NOW()
		WHERE user_id = $1
	`, a.UserID, a.Credits, a.ShowTokens, a.CountersDay,
		a.VotesToday, a.HappyVotesToday, a.ImpressionsToday,
		a.TotalCreditsEarned, a.TotalTokensSpent, touch)
	if err != nil {
		return fmt.Errorf("ошибка сохранения счёта: %w", err)
	}
	return nil
}

// AppendLog добавляет запись в журнал движений.
func (r *Repository) AppendLog(ctx context.Context, q postgres.DBTX, userID int64, kind string, credits, tokens int64, note string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO economy_log (user_id, kind, credits_delta, tokens_delta, note)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, kind, credits, tokens, note)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал: %w", err)
	}
	return nil
}

// History возвращает последние записи журнала пользователя.
func (r *Repository) History(ctx context.Context, userID int64, limit int) ([]LogEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, kind, credits_delta, tokens_delta, note, created_at
		FROM economy_log
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.CreditsDelta, &e.TokensDelta, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования журнала: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GrantDaily начисляет ежедневные кредиты активным за неделю пользователям.
// Премиум получает не меньше базового начисления: GREATEST(base, premium).
// Повторный вызов за тот же день ничего не делает: economy_daily_grants
// хранит факт начисления. Возвращает число получивших начисление.
func (r *Repository) GrantDaily(ctx context.Context, day string, now time.Time, base, premium int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		WITH eligible AS (
			SELECT a.user_id,
				CASE WHEN m.premium_until IS NOT NULL AND m.premium_until > $2
					THEN GREATEST($3::bigint, $4::bigint) ELSE $3::bigint END AS amount
			FROM economy_accounts a
			JOIN members m ON m.user_id = a.user_id AND NOT m.is_deleted
			WHERE a.last_active_at >= $2 - INTERVAL '7 days'
		), granted AS (
			INSERT INTO economy_daily_grants (day, user_id, amount)
			SELECT $1, user_id, amount FROM eligible WHERE amount > 0
			ON CONFLICT (day, user_id) DO NOTHING
			RETURNING user_id, amount
		), upd AS (
			UPDATE economy_accounts a SET
				credits = a.credits + g.amount,
				total_credits_earned = a.total_credits_earned + g.amount,
				updated_at = NOW()
			FROM granted g
			WHERE a.user_id = g.user_id
			RETURNING a.user_id, g.amount
		)
		INSERT INTO economy_log (user_id, kind, credits_delta, note)
		SELECT user_id, 'daily_grant', amount, $1 FROM upd
	`, day, now, base, premium)
	if err != nil {
		return 0, fmt.Errorf("ошибка ежедневного начисления: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GrantAll начисляет amount кредитов каждому существующему счёту.
func (r *Repository) GrantAll(ctx context.Context, amount int64, note string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		WITH upd AS (
			UPDATE economy_accounts SET
				credits = credits + $1,
				total_credits_earned = total_credits_earned + $1,
				updated_at = NOW()
			RETURNING user_id
		)
		INSERT INTO economy_log (user_id, kind, credits_delta, note)
		SELECT user_id, 'admin_grant_all', $1, $2 FROM upd
	`, amount, note)
	if err != nil {
		return 0, fmt.Errorf("ошибка начисления всем: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ResetAll обнуляет кредиты и показы у всех непустых счетов.
func (r *Repository) ResetAll(ctx context.Context, note string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		WITH old AS (
			SELECT user_id, credits, show_tokens FROM economy_accounts
			WHERE credits > 0 OR show_tokens > 0
			FOR UPDATE
		), upd AS (
			UPDATE economy_accounts a SET credits = 0, show_tokens = 0, updated_at = NOW()
			FROM old
			WHERE a.user_id = old.user_id
			RETURNING a.user_id, old.credits, old.show_tokens
		)
		INSERT INTO economy_log (user_id, kind, credits_delta, tokens_delta, note)
		SELECT user_id, 'admin_reset', -credits, -show_tokens, $1 FROM upd
	`, note)
	if err != nil {
		return 0, fmt.Errorf("ошибка обнуления балансов: %w", err)
	}
	return tag.RowsAffected(), nil
}
