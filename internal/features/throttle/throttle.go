// Package throttle — суточный лимит оценок одного голосующего одному автору.
// Счётчик (day, voter, author) растёт одним условным UPSERT, поэтому
// параллельные оценки не могут проскочить лимит.
package throttle

import (
	"context"
	"fmt"

	"glowshot.ru/rating-bot/internal/db/postgres"
)

// CheckAndIncrementDailyCap увеличивает счётчик оценок voter→author за day,
// если он меньше limit. exceeded=true означает, что лимит уже исчерпан и
// счётчик не изменился. limit <= 0 отключает проверку.
func CheckAndIncrementDailyCap(ctx context.Context, q postgres.DBTX, voterID, authorID int64, day string, limit int) (exceeded bool, err error) {
	if limit <= 0 {
		return false, nil
	}

	var count int
	err = q.QueryRow(ctx, `
		INSERT INTO author_vote_counters AS c (day, voter_id, author_id, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (day, voter_id, author_id)
		DO UPDATE SET count = c.count + 1
		WHERE c.count < $4
		RETURNING c.count
	`, day, voterID, authorID, limit).Scan(&count)
	if err != nil {
		if postgres.IsNoRows(err) {
			return true, nil
		}
		return false, fmt.Errorf("ошибка проверки лимита на автора: %w", err)
	}
	return false, nil
}

// Remaining возвращает, сколько ещё оценок voter может поставить author за day.
// При limit <= 0 возвращает -1 (без ограничения).
func Remaining(ctx context.Context, q postgres.DBTX, voterID, authorID int64, day string, limit int) (int, error) {
	if limit <= 0 {
		return -1, nil
	}
	var used int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(MAX(count), 0) FROM author_vote_counters
		WHERE day = $1 AND voter_id = $2 AND author_id = $3
	`, day, voterID, authorID).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения лимита на автора: %w", err)
	}
	if used >= limit {
		return 0, nil
	}
	return limit - used, nil
}

// Purge удаляет счётчики дней раньше before. Вызывается ежедневной задачей.
func Purge(ctx context.Context, q postgres.DBTX, before string) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM author_vote_counters WHERE day < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки счётчиков: %w", err)
	}
	return tag.RowsAffected(), nil
}
