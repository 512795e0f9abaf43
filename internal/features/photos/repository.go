// Package photos — repository.go: SQL для таблиц photos, photo_reports, comments.
package photos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/db/postgres"
)

// Columns — список колонок для ScanPhoto. Используется лентой и агрегатором.
const Columns = `p.id, p.user_id, p.file_id, p.title, COALESCE(p.tag, ''), p.status,
	p.moderation_status, p.ratings_enabled, p.day_key, p.created_at, p.expires_at,
	p.votes_count, p.sum_score, p.avg_score, p.views_count`

// ScanPhoto читает строку, выбранную с Columns.
func ScanPhoto(row pgx.Row) (*Photo, error) {
	var p Photo
	err := row.Scan(
		&p.ID, &p.UserID, &p.FileID, &p.Title, &p.Tag, &p.Status,
		&p.ModerationStatus, &p.RatingsEnabled, &p.DayKey, &p.CreatedAt, &p.ExpiresAt,
		&p.VotesCount, &p.SumScore, &p.AvgScore, &p.ViewsCount,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Repository работает с фотографиями.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий фотографий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create публикует фото и возвращает его с заполненным ID.
func (r *Repository) Create(ctx context.Context, req PublishRequest, dayKey string, expiresAt time.Time) (*Photo, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO photos AS p (user_id, file_id, title, tag, ratings_enabled, day_key, expires_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING `+Columns,
		req.UserID, req.FileID, req.Title, req.Tag, req.RatingsEnabled, dayKey, expiresAt,
	)
	p, err := ScanPhoto(row)
	if err != nil {
		return nil, fmt.Errorf("ошибка публикации фото: %w", err)
	}
	return p, nil
}

// GetByID возвращает фото (в том числе удалённое).
func (r *Repository) GetByID(ctx context.Context, photoID int64) (*Photo, error) {
	p, err := ScanPhoto(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM photos p WHERE p.id = $1`, photoID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrPhotoNotFound
		}
		return nil, fmt.Errorf("ошибка чтения фото: %w", err)
	}
	return p, nil
}

// SoftDelete помечает фото удалённым и в той же транзакции убирает
// его строки итогов и отметки просмотров, помечая ранг автора устаревшим.
func (r *Repository) SoftDelete(ctx context.Context, photoID int64) error {
	return postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var ownerID int64
		err := tx.QueryRow(ctx, `
			UPDATE photos SET status = 'deleted', deleted_at = NOW()
			WHERE id = $1 AND status <> 'deleted'
			RETURNING user_id
		`, photoID).Scan(&ownerID)
		if err != nil {
			if postgres.IsNoRows(err) {
				return common.ErrPhotoNotFound
			}
			return fmt.Errorf("ошибка удаления фото: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM results_entries WHERE photo_id = $1`, photoID); err != nil {
			return fmt.Errorf("ошибка очистки итогов: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM photo_views WHERE photo_id = $1`, photoID); err != nil {
			return fmt.Errorf("ошибка очистки просмотров: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE photos SET rank_dirty = TRUE WHERE user_id = $1 AND status <> 'deleted'
		`, ownerID); err != nil {
			return fmt.Errorf("ошибка сброса ранга: %w", err)
		}
		return nil
	})
}

// ArchiveExpired переводит в архив фото с истёкшим сроком, для дня которых
// уже посчитаны глобальные дневные итоги. Возвращает число архивированных.
func (r *Repository) ArchiveExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE photos p SET status = 'archived'
		WHERE p.status = 'active'
		  AND p.expires_at IS NOT NULL AND p.expires_at <= $1
		  AND EXISTS (
			SELECT 1 FROM results_status s
			WHERE s.period = 'day' AND s.period_key = p.day_key
			  AND s.scope_type = 'global' AND s.state = 'computed'
		  )
	`, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка архивации фото: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetModerationStatus выставляет статус модерации (внешний контур модерации).
func (r *Repository) SetModerationStatus(ctx context.Context, photoID int64, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE photos SET moderation_status = $2 WHERE id = $1`, photoID, status)
	if err != nil {
		return fmt.Errorf("ошибка смены статуса модерации: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrPhotoNotFound
	}
	return nil
}

// AddReport регистрирует жалобу на фото.
func (r *Repository) AddReport(ctx context.Context, photoID, reporterID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO photo_reports (photo_id, reporter_id) VALUES ($1, $2)
	`, photoID, reporterID)
	if err != nil {
		return fmt.Errorf("ошибка записи жалобы: %w", err)
	}
	return nil
}

// ResolveReports закрывает все открытые жалобы на фото.
func (r *Repository) ResolveReports(ctx context.Context, photoID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE photo_reports SET status = 'resolved' WHERE photo_id = $1 AND status = 'pending'
	`, photoID)
	if err != nil {
		return 0, fmt.Errorf("ошибка закрытия жалоб: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PendingReportCount возвращает число открытых жалоб.
func (r *Repository) PendingReportCount(ctx context.Context, photoID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM photo_reports WHERE photo_id = $1 AND status = 'pending'
	`, photoID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта жалоб: %w", err)
	}
	return n, nil
}

// AddComment сохраняет комментарий (учитывается бонусом в итогах).
func (r *Repository) AddComment(ctx context.Context, photoID, userID int64, text string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO comments (photo_id, user_id, text) VALUES ($1, $2, $3)
	`, photoID, userID, text)
	if err != nil {
		return fmt.Errorf("ошибка записи комментария: %w", err)
	}
	return nil
}

// ListByUser возвращает последние фото пользователя (без удалённых).
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]*Photo, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+Columns+` FROM photos p
		WHERE p.user_id = $1 AND p.status <> 'deleted'
		ORDER BY p.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения фото пользователя: %w", err)
	}
	defer rows.Close()

	var out []*Photo
	for rows.Next() {
		p, err := ScanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования фото: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
