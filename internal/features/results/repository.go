// Package results — repository.go: агрегаты фото за окно, статусы ключей,
// строки results_entries и results_wins.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"glowshot.ru/rating-bot/internal/db/postgres"
	"glowshot.ru/rating-bot/internal/features/scoring"
)

// Repository работает с таблицами итогов.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий итогов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const keyWhere = `period = $1 AND period_key = $2 AND scope_type = $3 AND scope_key = $4 AND kind = $5`

func keyArgs(k Key) []any {
	return []any{k.Period, k.PeriodKey, k.ScopeType, k.ScopeKey, k.Kind}
}

// LockStatus создаёт строку статуса при необходимости и блокирует её.
// Параллельные пересчёты одного ключа выстраиваются в очередь на этой строке.
func (r *Repository) LockStatus(ctx context.Context, tx postgres.DBTX, k Key) (*Status, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO results_status (period, period_key, scope_type, scope_key, kind)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`, keyArgs(k)...); err != nil {
		return nil, fmt.Errorf("ошибка создания статуса итогов: %w", err)
	}
	st := Status{Key: k}
	err := tx.QueryRow(ctx, `
		SELECT state, computed_at, version, items FROM results_status
		WHERE `+keyWhere+` FOR UPDATE
	`, keyArgs(k)...).Scan(&st.State, &st.ComputedAt, &st.Version, &st.Items)
	if err != nil {
		return nil, fmt.Errorf("ошибка блокировки статуса итогов: %w", err)
	}
	return &st, nil
}

// GetStatus читает статус без блокировки. Отсутствующий ключ — не посчитан.
func (r *Repository) GetStatus(ctx context.Context, k Key) (*Status, error) {
	st := Status{Key: k, State: StateNotComputed}
	err := r.db.QueryRow(ctx, `
		SELECT state, computed_at, version, items FROM results_status WHERE `+keyWhere,
		keyArgs(k)...).Scan(&st.State, &st.ComputedAt, &st.Version, &st.Items)
	if err != nil && !postgres.IsNoRows(err) {
		return nil, fmt.Errorf("ошибка чтения статуса итогов: %w", err)
	}
	return &st, nil
}

// MarkComputed фиксирует пересчёт: состояние, время, версия, число мест.
func (r *Repository) MarkComputed(ctx context.Context, tx postgres.DBTX, k Key, items int) error {
	_, err := tx.Exec(ctx, `
		UPDATE results_status
		SET state = 'computed', computed_at = NOW(), version = version + 1, items = $6
		WHERE `+keyWhere,
		append(keyArgs(k), items)...)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса итогов: %w", err)
	}
	return nil
}

// Invalidate возвращает ключ в состояние «не посчитан». false — ключа не было.
func (r *Repository) Invalidate(ctx context.Context, k Key) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE results_status SET state = 'not_computed' WHERE `+keyWhere,
		keyArgs(k)...)
	if err != nil {
		return false, fmt.Errorf("ошибка сброса статуса итогов: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ActiveAuthors считает разных активных авторов в городе или стране.
func (r *Repository) ActiveAuthors(ctx context.Context, q postgres.DBTX, scopeType, scopeKey string) (int, error) {
	col := "m.city"
	if scopeType == scoring.ScopeCountry {
		col = "m.country"
	}
	var n int
	err := q.QueryRow(ctx, `
		SELECT COUNT(DISTINCT p.user_id)
		FROM photos p
		JOIN members m ON m.user_id = p.user_id
		WHERE p.status <> 'deleted' AND p.moderation_status = 'active'
		  AND NOT m.is_deleted AND `+col+` = $1
	`, scopeKey).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта авторов скоупа: %w", err)
	}
	return n, nil
}

// Rows возвращает агрегаты фото ключа k в окне w.
func (r *Repository) Rows(ctx context.Context, q postgres.DBTX, k Key, w window, linkWeight float64) ([]Row, error) {
	args := []any{linkWeight, k.ScopeType, k.ScopeKey, k.Period, w.Ref}
	conds := []string{"p.status <> 'deleted'", "p.moderation_status = 'active'", "NOT m.is_deleted"}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if w.From != "" {
		add("p.day_key >= $%d", w.From)
		add("p.day_key <= $%d", w.To)
	}
	switch k.ScopeType {
	case scoring.ScopeCity:
		add("m.city = $%d", k.ScopeKey)
	case scoring.ScopeCountry:
		add("m.country = $%d", k.ScopeKey)
	case scoring.ScopeTagEvent:
		add("p.tag = $%d", k.ScopeKey)
	}

	rows, err := q.Query(ctx, `
		SELECT p.id, p.user_id, p.file_id, p.title,
			COALESCE(m.first_name, ''), COALESCE(m.username, ''), p.created_at,
			COUNT(r.id), COUNT(DISTINCT r.user_id),
			COALESCE(SUM(r.value * CASE WHEN r.source = 'link' THEN $1::float8 ELSE 1.0 END), 0),
			COALESCE(SUM(CASE WHEN r.source = 'link' THEN $1::float8 ELSE 1.0 END), 0),
			COALESCE(AVG(r.value), 0)::float8,
			(SELECT COUNT(*) FROM comments c WHERE c.photo_id = p.id),
			(SELECT COUNT(*) FROM photo_reports pr WHERE pr.photo_id = p.id AND pr.status = 'pending'),
			(SELECT COUNT(*) FROM referrals rf WHERE rf.inviter_id = p.user_id AND rf.qualified),
			(SELECT COALESCE(MAX(w.win_date)::text, '') FROM results_wins w
				WHERE w.scope_type = $2 AND w.scope_key = $3 AND w.period = $4
				  AND w.user_id = p.user_id AND w.win_date < $5::date)
		FROM photos p
		JOIN members m ON m.user_id = p.user_id
		LEFT JOIN ratings r ON r.photo_id = p.id
		WHERE `+strings.Join(conds, " AND ")+`
		GROUP BY p.id, m.first_name, m.username
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации итогов: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var x Row
		if err := rows.Scan(
			&x.PhotoID, &x.UserID, &x.FileID, &x.Title,
			&x.AuthorName, &x.AuthorUsername, &x.CreatedAt,
			&x.RatingsCount, &x.UniqueRaters, &x.WeightedSum, &x.WeightedCount, &x.AvgRating,
			&x.Comments, &x.PendingReports, &x.QualifiedInvites, &x.LastWin,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агрегата итогов: %w", err)
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

// ReplaceEntries записывает места 1..N и удаляет места после N.
func (r *Repository) ReplaceEntries(ctx context.Context, tx postgres.DBTX, k Key, entries []Entry) error {
	for _, e := range entries {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("ошибка сериализации итогов: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO results_entries
				(period, period_key, scope_type, scope_key, kind, place, photo_id, user_id, score, payload, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
			ON CONFLICT (period, period_key, scope_type, scope_key, kind, place) DO UPDATE SET
				photo_id = EXCLUDED.photo_id,
				user_id = EXCLUDED.user_id,
				score = EXCLUDED.score,
				payload = EXCLUDED.payload,
				updated_at = NOW()
		`, append(keyArgs(k), e.Place, e.PhotoID, e.UserID, e.Score, payload)...); err != nil {
			return fmt.Errorf("ошибка записи места %d: %w", e.Place, err)
		}
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM results_entries WHERE `+keyWhere+` AND place > $6
	`, append(keyArgs(k), len(entries))...); err != nil {
		return fmt.Errorf("ошибка очистки лишних мест: %w", err)
	}
	return nil
}

// RecordWin запоминает победителя ключа для кулдауна.
func (r *Repository) RecordWin(ctx context.Context, tx postgres.DBTX, k Key, userID, photoID int64, winDay string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO results_wins (scope_type, scope_key, period, period_key, user_id, photo_id, win_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date)
		ON CONFLICT (scope_type, scope_key, period, period_key) DO UPDATE SET
			user_id = EXCLUDED.user_id, photo_id = EXCLUDED.photo_id, win_date = EXCLUDED.win_date
	`, k.ScopeType, k.ScopeKey, k.Period, k.PeriodKey, userID, photoID, winDay)
	if err != nil {
		return fmt.Errorf("ошибка записи победителя: %w", err)
	}
	return nil
}

// ClearWin удаляет победителя ключа, если мест не осталось.
func (r *Repository) ClearWin(ctx context.Context, tx postgres.DBTX, k Key) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM results_wins
		WHERE scope_type = $1 AND scope_key = $2 AND period = $3 AND period_key = $4
	`, k.ScopeType, k.ScopeKey, k.Period, k.PeriodKey)
	if err != nil {
		return fmt.Errorf("ошибка удаления победителя: %w", err)
	}
	return nil
}

// Entries читает места ключа.
func (r *Repository) Entries(ctx context.Context, k Key) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT place, COALESCE(photo_id, 0), COALESCE(user_id, 0), COALESCE(score, 0), payload
		FROM results_entries
		WHERE `+keyWhere+`
		ORDER BY place
	`, keyArgs(k)...)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения итогов: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e   Entry
			raw []byte
		)
		if err := rows.Scan(&e.Place, &e.PhotoID, &e.UserID, &e.Score, &raw); err != nil {
			return nil, fmt.Errorf("ошибка сканирования итогов: %w", err)
		}
		if err := json.Unmarshal(raw, &e.Payload); err != nil {
			return nil, fmt.Errorf("ошибка разбора итогов: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DayScopes возвращает города, страны и теги авторов, публиковавших фото в день day.
func (r *Repository) DayScopes(ctx context.Context, day string) (cities, countries, tags []string, err error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT 'city', m.city FROM photos p JOIN members m ON m.user_id = p.user_id
		WHERE p.day_key = $1 AND p.status <> 'deleted' AND m.city IS NOT NULL AND m.city <> ''
		UNION
		SELECT DISTINCT 'country', m.country FROM photos p JOIN members m ON m.user_id = p.user_id
		WHERE p.day_key = $1 AND p.status <> 'deleted' AND m.country IS NOT NULL AND m.country <> ''
		UNION
		SELECT DISTINCT 'tag', p.tag FROM photos p
		WHERE p.day_key = $1 AND p.status <> 'deleted' AND p.tag IS NOT NULL AND p.tag <> ''
		ORDER BY 1, 2
	`, day)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ошибка чтения скоупов дня: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			return nil, nil, nil, fmt.Errorf("ошибка сканирования скоупа: %w", err)
		}
		switch kind {
		case "city":
			cities = append(cities, value)
		case "country":
			countries = append(countries, value)
		default:
			tags = append(tags, value)
		}
	}
	return cities, countries, tags, rows.Err()
}
