// Package feed — repository.go: выборка кандидатов, захват строки без
// ожидания чужих блокировок и отметки просмотров.
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"glowshot.ru/rating-bot/internal/db/postgres"
	"glowshot.ru/rating-bot/internal/features/photos"
)

// Repository работает с кандидатами ленты.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий ленты.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// eligibility — общие условия показа фото зрителю $1 в момент $2.
const eligibility = `
	p.status = 'active' AND p.moderation_status = 'active'
	AND (p.expires_at IS NULL OR p.expires_at > $2)
	AND p.user_id <> $1
	AND NOT EXISTS (SELECT 1 FROM ratings r WHERE r.photo_id = p.id AND r.user_id = $1)
	AND NOT EXISTS (SELECT 1 FROM photo_views v WHERE v.photo_id = p.id AND v.viewer_id = $1)`

const fundedAuthor = `EXISTS (
	SELECT 1 FROM economy_accounts a
	WHERE a.user_id = p.user_id AND (a.credits > 0 OR a.show_tokens > 0))`

// Candidates возвращает кандидатов по фильтру: сначала с меньшим числом
// оценок, при равенстве более свежие.
func (r *Repository) Candidates(ctx context.Context, viewerID int64, now time.Time, f filter) ([]candidate, error) {
	args := []any{viewerID, now, f.Rateable}
	where := []string{eligibility, "p.ratings_enabled = $3"}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Funded != nil {
		if *f.Funded {
			where = append(where, fundedAuthor)
		} else {
			where = append(where, "NOT "+fundedAuthor)
		}
	}
	if f.MinVotes > 0 {
		add("p.votes_count >= $%d", f.MinVotes)
	}
	if f.MaxVotes >= 0 {
		add("p.votes_count <= $%d", f.MaxVotes)
	}
	if f.PremiumOnly {
		where = append(where, `EXISTS (
			SELECT 1 FROM members m
			WHERE m.user_id = p.user_id AND m.premium_until IS NOT NULL AND m.premium_until > $2)`)
	}
	if f.ExcludeAuthor != 0 {
		add("p.user_id <> $%d", f.ExcludeAuthor)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT p.id, p.user_id, p.votes_count
		FROM photos p
		WHERE %s
		ORDER BY p.votes_count ASC, p.created_at DESC, p.id DESC
		LIMIT $%d
	`, strings.Join(where, "\n\t\tAND "), len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки кандидатов: %w", err)
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.ID, &c.UserID, &c.VotesCount); err != nil {
			return nil, fmt.Errorf("ошибка сканирования кандидата: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TryClaim пытается заблокировать фото и заново проверяет, что его можно
// показать. Если строка занята другим зрителем или фото больше не подходит,
// возвращает nil без ожидания.
func (r *Repository) TryClaim(ctx context.Context, tx postgres.DBTX, photoID, viewerID int64, now time.Time, rateable bool) (*photos.Photo, error) {
	p, err := photos.ScanPhoto(tx.QueryRow(ctx, `
		SELECT `+photos.Columns+`
		FROM photos p
		WHERE p.id = $4 AND p.ratings_enabled = $3 AND `+eligibility+`
		FOR UPDATE OF p SKIP LOCKED
	`, viewerID, now, rateable, photoID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка захвата фото: %w", err)
	}
	return p, nil
}

// RecordView ставит отметку просмотра (photo, viewer) и увеличивает views_count.
// false — отметка уже была.
func (r *Repository) RecordView(ctx context.Context, tx postgres.DBTX, photoID, viewerID int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO photo_views (photo_id, viewer_id) VALUES ($1, $2)
		ON CONFLICT (photo_id, viewer_id) DO NOTHING
	`, photoID, viewerID)
	if err != nil {
		return false, fmt.Errorf("ошибка записи просмотра: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, `UPDATE photos SET views_count = views_count + 1 WHERE id = $1`, photoID); err != nil {
		return false, fmt.Errorf("ошибка обновления просмотров: %w", err)
	}
	return true, nil
}

// NextSeq увеличивает шаг ротации зрителя и возвращает его вместе с последним автором.
func (r *Repository) NextSeq(ctx context.Context, viewerID int64) (int64, int64, error) {
	var (
		seq        int64
		lastAuthor *int64
	)
	err := r.db.QueryRow(ctx, `
		INSERT INTO feed_rotation AS f (viewer_id, seq) VALUES ($1, 1)
		ON CONFLICT (viewer_id) DO UPDATE SET seq = f.seq + 1, updated_at = NOW()
		RETURNING f.seq, f.last_author_id
	`, viewerID).Scan(&seq, &lastAuthor)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка шага ротации: %w", err)
	}
	if lastAuthor == nil {
		return seq, 0, nil
	}
	return seq, *lastAuthor, nil
}

// SetLastAuthor запоминает автора последнего показанного фото.
func (r *Repository) SetLastAuthor(ctx context.Context, tx postgres.DBTX, viewerID, authorID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE feed_rotation SET last_author_id = $2, updated_at = NOW() WHERE viewer_id = $1
	`, viewerID, authorID)
	if err != nil {
		return fmt.Errorf("ошибка записи последнего автора: %w", err)
	}
	return nil
}
