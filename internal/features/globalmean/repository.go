package globalmean

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository считает среднее по таблице ratings.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// WeightedMean — SUM(value*w)/SUM(w), где w = linkWeight для source='link'.
// Оценки удалённых фото не учитываются.
func (r *Repository) WeightedMean(ctx context.Context, linkWeight float64) (float64, int64, error) {
	var (
		mean  *float64
		count int64
	)
	err := r.db.QueryRow(ctx, `
		SELECT
			SUM(r.value * CASE WHEN r.source = 'link' THEN $1::float8 ELSE 1.0 END)
				/ NULLIF(SUM(CASE WHEN r.source = 'link' THEN $1::float8 ELSE 1.0 END), 0),
			COUNT(*)
		FROM ratings r
		JOIN photos p ON p.id = r.photo_id
		WHERE p.status <> 'deleted'
	`, linkWeight).Scan(&mean, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка расчёта глобального среднего: %w", err)
	}
	if mean == nil {
		// Нет оценок с ненулевым весом: как холодный старт
		return 0, 0, nil
	}
	return *mean, count, nil
}

// Save сохраняет значение в global_rating_cache (одна строка).
func (r *Repository) Save(ctx context.Context, snap Snapshot) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO global_rating_cache (id, mean, ratings_count, computed_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET mean = EXCLUDED.mean, ratings_count = EXCLUDED.ratings_count, computed_at = EXCLUDED.computed_at
	`, snap.Mean, snap.Count, snap.ComputedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения глобального среднего: %w", err)
	}
	return nil
}
