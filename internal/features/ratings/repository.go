// Package ratings — repository.go: SQL для ratings и кэша ранга в members.
package ratings

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/db/postgres"
	"glowshot.ru/rating-bot/internal/features/photos"
)

// Repository работает с оценками.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий оценок.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LockPhoto блокирует строку фото до конца транзакции.
func (r *Repository) LockPhoto(ctx context.Context, tx postgres.DBTX, photoID int64) (*photos.Photo, error) {
	p, err := photos.ScanPhoto(tx.QueryRow(ctx,
		`SELECT `+photos.Columns+` FROM photos p WHERE p.id = $1 FOR UPDATE`, photoID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrPhotoNotFound
		}
		return nil, fmt.Errorf("ошибка блокировки фото: %w", err)
	}
	return p, nil
}

// HasRated проверяет, оценивал ли пользователь фото.
func (r *Repository) HasRated(ctx context.Context, q postgres.DBTX, photoID, userID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM ratings WHERE photo_id = $1 AND user_id = $2)
	`, photoID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки оценки: %w", err)
	}
	return exists, nil
}

// Insert сохраняет оценку. false — такая оценка уже есть.
func (r *Repository) Insert(ctx context.Context, tx postgres.DBTX, photoID, userID int64, value int, source string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO ratings (photo_id, user_id, value, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (photo_id, user_id) DO NOTHING
	`, photoID, userID, value, source)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("ошибка записи оценки: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// BumpCounters обновляет votes_count/sum_score/avg_score одним выражением.
func (r *Repository) BumpCounters(ctx context.Context, tx postgres.DBTX, photoID int64, value int) error {
	_, err := tx.Exec(ctx, `
		UPDATE photos SET
			votes_count = votes_count + 1,
			sum_score = sum_score + $2,
			avg_score = (sum_score + $2)::float8 / (votes_count + 1)
		WHERE id = $1
	`, photoID, value)
	if err != nil {
		return fmt.Errorf("ошибка обновления счётчиков фото: %w", err)
	}
	return nil
}

// MarkRankDirty помечает ранг автора устаревшим.
func (r *Repository) MarkRankDirty(ctx context.Context, tx postgres.DBTX, ownerID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE photos SET rank_dirty = TRUE
		WHERE user_id = $1 AND status <> 'deleted' AND NOT rank_dirty
	`, ownerID)
	if err != nil {
		return fmt.Errorf("ошибка пометки ранга: %w", err)
	}
	return nil
}

// ListByPhoto возвращает оценки фото, новые первыми.
func (r *Repository) ListByPhoto(ctx context.Context, photoID int64, limit int) ([]Vote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, photo_id, user_id, value, source, created_at
		FROM ratings WHERE photo_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, photoID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения оценок: %w", err)
	}
	defer rows.Close()

	var out []Vote
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ID, &v.PhotoID, &v.UserID, &v.Value, &v.Source, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования оценки: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// rankState — закэшированный ранг и признак его устаревания.
type rankState struct {
	Points    int
	Code      string
	UpdatedAt *time.Time
	Dirty     bool
}

// RankState читает кэш ранга из members.
func (r *Repository) RankState(ctx context.Context, userID int64) (*rankState, error) {
	var st rankState
	err := r.db.QueryRow(ctx, `
		SELECT m.rank_points, m.rank_code, m.rank_updated_at,
			EXISTS(SELECT 1 FROM photos p WHERE p.user_id = m.user_id AND p.rank_dirty)
		FROM members m
		WHERE m.user_id = $1 AND NOT m.is_deleted
	`, userID).Scan(&st.Points, &st.Code, &st.UpdatedAt, &st.Dirty)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка чтения ранга: %w", err)
	}
	return &st, nil
}

// RecentAggregates возвращает взвешенные суммы оценок последних limit фото автора.
// Удалённые фото учитываются, чтобы ранг нельзя было сбросить удалением.
func (r *Repository) RecentAggregates(ctx context.Context, userID int64, linkWeight float64, limit int) ([]photoAggregate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id,
			COALESCE(SUM(r.value * CASE WHEN r.source = 'link' THEN $2::float8 ELSE 1.0 END), 0),
			COALESCE(SUM(CASE WHEN r.source = 'link' THEN $2::float8 ELSE 1.0 END), 0),
			COUNT(r.id)
		FROM photos p
		LEFT JOIN ratings r ON r.photo_id = p.id
		WHERE p.user_id = $1 AND p.moderation_status = 'active'
		GROUP BY p.id, p.created_at
		ORDER BY p.created_at DESC
		LIMIT $3
	`, userID, linkWeight, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации оценок автора: %w", err)
	}
	defer rows.Close()

	var out []photoAggregate
	for rows.Next() {
		var a photoAggregate
		if err := rows.Scan(&a.PhotoID, &a.WeightedSum, &a.Weight, &a.Count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агрегата: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveRank сохраняет ранг и снимает пометки устаревания.
func (r *Repository) SaveRank(ctx context.Context, userID int64, points int, code string) error {
	return postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE members SET rank_points = $2, rank_code = $3, rank_updated_at = NOW(), updated_at = NOW()
			WHERE user_id = $1
		`, userID, points, code); err != nil {
			return fmt.Errorf("ошибка сохранения ранга: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE photos SET rank_dirty = FALSE WHERE user_id = $1 AND rank_dirty
		`, userID); err != nil {
			return fmt.Errorf("ошибка сброса пометок ранга: %w", err)
		}
		return nil
	})
}
