// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// .env (если есть) подхватывается через godotenv до разбора.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Режимы ленты
const (
	FeedModeFunded   = "funded"   // Платный проход + хвост
	FeedModeRotation = "rotation" // Старая ротация по корзинам
)

// Config содержит ВСЕ настройки приложения.
// Тюнинг экономики (курсы, happy hour, пороги) живёт в таблице economy_settings,
// здесь только то, что нужно для старта процесса.
type Config struct {
	// --- Telegram ---
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS"`
	AdminIDs         []int64 `envconfig:"-"` // заполним вручную
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	BotEnabled       bool    `envconfig:"BOT_ENABLED" default:"true"`
	// Сколько апдейтов обрабатываем параллельно
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Database ---
	// Дефолт "postgres" (имя сервиса в docker-compose), для локалки DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"glowshot"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"glowshot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- HTTP API ---
	HTTPEnabled     bool          `envconfig:"HTTP_ENABLED" default:"true"`
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPCORSOrigins string        `envconfig:"HTTP_CORS_ORIGINS"`
	HTTPRateRPS     float64       `envconfig:"HTTP_RATE_RPS" default:"20"`
	HTTPRateBurst   int           `envconfig:"HTTP_RATE_BURST" default:"40"`
	HTTPShutdown    time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`

	// Bearer-токен слоя представления для маршрутов от имени пользователя.
	// Пустой — маршруты закрыты.
	HTTPServiceToken string `envconfig:"HTTP_SERVICE_TOKEN"`

	// --- Admin ---
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`
	AdminSessionTTL   time.Duration `envconfig:"ADMIN_SESSION_TTL" default:"24h"`

	// --- Engine ---
	GlobalMeanTTL time.Duration `envconfig:"GLOBAL_MEAN_TTL" default:"5m"`
	SettingsTTL   time.Duration `envconfig:"SETTINGS_TTL" default:"30s"`
	FeedMode      string        `envconfig:"FEED_MODE" default:"funded"`
	ResultsLimit  int           `envconfig:"RESULTS_LIMIT" default:"10"`
	// Сколько фото остаётся в ленте после публикации
	PhotoLifetime time.Duration `envconfig:"PHOTO_LIFETIME" default:"72h"`

	// --- Jobs ---
	JobsEnabled         bool   `envconfig:"JOBS_ENABLED" default:"true"`
	JobsResultsSpec     string `envconfig:"JOBS_RESULTS_SPEC" default:"5 0 * * *"`
	JobsDailyGrantSpec  string `envconfig:"JOBS_DAILY_GRANT_SPEC" default:"0 0 * * *"`
	JobsArchiveSpec     string `envconfig:"JOBS_ARCHIVE_SPEC" default:"15 * * * *"`
	JobsIntradayResults string `envconfig:"JOBS_INTRADAY_RESULTS_SPEC" default:"*/30 * * * *"`

	// --- Rate Limiting (бот) ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdmin проверяет, входит ли Telegram ID в ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CORSOrigins возвращает список разрешённых origin для HTTP API.
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.HTTPCORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if !c.BotEnabled && !c.HTTPEnabled {
		return fmt.Errorf("нужно включить хотя бы один транспорт (BOT_ENABLED или HTTP_ENABLED)")
	}
	if c.BotEnabled && c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN обязателен при BOT_ENABLED=true")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.FeedMode != FeedModeFunded && c.FeedMode != FeedModeRotation {
		return fmt.Errorf("FEED_MODE должен быть %q или %q", FeedModeFunded, FeedModeRotation)
	}
	if c.ResultsLimit <= 0 || c.ResultsLimit > 100 {
		return fmt.Errorf("RESULTS_LIMIT должен быть в диапазоне 1..100")
	}
	if c.GlobalMeanTTL <= 0 {
		return fmt.Errorf("GLOBAL_MEAN_TTL должен быть > 0")
	}
	if c.PhotoLifetime <= 0 {
		return fmt.Errorf("PHOTO_LIFETIME должен быть > 0")
	}
	if c.HTTPRateRPS <= 0 || c.HTTPRateBurst <= 0 {
		return fmt.Errorf("HTTP_RATE_RPS и HTTP_RATE_BURST должны быть > 0")
	}
	return nil
}

// Load читает .env (если есть) и переменные окружения и заполняет Config.
func Load() (*Config, error) {
	// .env нужен только локально, в Docker переменные приходят из окружения
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
