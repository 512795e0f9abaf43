// Package pgtest поднимает пул к тестовой базе для интеграционных тестов.
// Тесты пропускаются, если TEST_POSTGRES_DSN не задан.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"glowshot.ru/rating-bot/internal/db/postgres"
)

// Open подключается к TEST_POSTGRES_DSN, применяет миграции и очищает таблицы.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN не задан, пропускаем интеграционный тест")
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn, 8, 0)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.RunMigrations(ctx, pool, postgres.Migrations))
	Truncate(t, pool)
	return pool
}

// Truncate очищает все таблицы схемы, кроме schema_migrations.
func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		TRUNCATE members, referrals, photos, photo_reports, comments, ratings,
			photo_views, feed_rotation, global_rating_cache,
			economy_accounts, economy_log, economy_daily_grants, author_vote_counters,
			economy_settings, results_entries, results_status, results_wins,
			admin_sessions, admin_login_attempts
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)
}

// Seed — помощник для заполнения тестовых данных прямыми SQL-вставками.
type Seed struct {
	t    *testing.T
	pool *pgxpool.Pool
}

// NewSeed создаёт помощник заполнения.
func NewSeed(t *testing.T, pool *pgxpool.Pool) *Seed {
	return &Seed{t: t, pool: pool}
}

// Member создаёт пользователя с городом и страной.
func (s *Seed) Member(userID int64, city, country string) {
	s.t.Helper()
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO members (user_id, username, first_name, city, country)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		ON CONFLICT (user_id) DO NOTHING
	`, userID, "", "user", city, country)
	require.NoError(s.t, err)
}

// Photo публикует активную фотографию в указанный день и возвращает её id.
func (s *Seed) Photo(userID int64, dayKey string) int64 {
	s.t.Helper()
	var id int64
	err := s.pool.QueryRow(context.Background(), `
		INSERT INTO photos (user_id, file_id, title, day_key)
		VALUES ($1, 'file', 'photo', $2)
		RETURNING id
	`, userID, dayKey).Scan(&id)
	require.NoError(s.t, err)
	return id
}

// Account задаёт баланс пользователя.
func (s *Seed) Account(userID, credits, tokens int64) {
	s.t.Helper()
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO economy_accounts (user_id, credits, show_tokens)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET credits = $2, show_tokens = $3
	`, userID, credits, tokens)
	require.NoError(s.t, err)
}

// Exec выполняет произвольный SQL.
func (s *Seed) Exec(sql string, args ...any) {
	s.t.Helper()
	_, err := s.pool.Exec(context.Background(), sql, args...)
	require.NoError(s.t, err)
}
