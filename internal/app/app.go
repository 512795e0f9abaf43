// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, транспорты
// (бот и HTTP API) и планировщик, а Run запускает всё включённое в конфиге.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/bot"
	"glowshot.ru/rating-bot/internal/config"
	"glowshot.ru/rating-bot/internal/db/postgres"
	"glowshot.ru/rating-bot/internal/features/admin"
	"glowshot.ru/rating-bot/internal/features/economy"
	"glowshot.ru/rating-bot/internal/features/feed"
	"glowshot.ru/rating-bot/internal/features/globalmean"
	"glowshot.ru/rating-bot/internal/features/members"
	"glowshot.ru/rating-bot/internal/features/photos"
	"glowshot.ru/rating-bot/internal/features/ratings"
	"glowshot.ru/rating-bot/internal/features/results"
	"glowshot.ru/rating-bot/internal/features/settings"
	"glowshot.ru/rating-bot/internal/features/throttle"
	"glowshot.ru/rating-bot/internal/httpapi"
	"glowshot.ru/rating-bot/internal/jobs"
)

// Services — доменные сервисы, общие для бота, HTTP API и задач.
type Services struct {
	Members    *members.Service
	Photos     *photos.Service
	Settings   *settings.Service
	GlobalMean *globalmean.Cache
	Economy    *economy.Service
	Ratings    *ratings.Service
	Feed       *feed.Service
	Results    *results.Service
	Admin      *admin.Service
}

// App содержит все компоненты приложения. Bot и HTTP равны nil,
// если транспорт выключен в конфиге.
type App struct {
	DB        *pgxpool.Pool
	Services  *Services
	Bot       *bot.Bot
	HTTP      *httpapi.Server
	Scheduler *jobs.Scheduler
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	if err := postgres.RunMigrations(ctx, pool, postgres.Migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Сервисы ===
	svc := newServices(pool, cfg)
	a := &App{DB: pool, Services: svc}

	// === 3. Telegram ===
	if cfg.BotEnabled {
		if a.Bot, err = newBot(ctx, cfg, svc); err != nil {
			pool.Close()
			return nil, err
		}
	}

	// === 4. HTTP API ===
	if cfg.HTTPEnabled {
		if cfg.AppEnv != "development" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := httpapi.NewRouter(httpapi.Dependencies{
			DB:       pool,
			Feed:     svc.Feed,
			Votes:    svc.Ratings,
			Results:  svc.Results,
			Accounts: svc.Economy,
			Members:  svc.Members,
			Photos:   svc.Photos,
			Ledger:   svc.Economy,
			Settings: svc.Settings,
			Auth:     svc.Admin,
		}, httpapi.Options{
			CORSOrigins:  cfg.CORSOrigins(),
			ServiceToken: cfg.HTTPServiceToken,
			RateRPS:      cfg.HTTPRateRPS,
			RateBurst:    cfg.HTTPRateBurst,
		})
		if cfg.HTTPServiceToken == "" {
			log.Warn("HTTP_SERVICE_TOKEN не задан: лента, оценки и счета в HTTP API закрыты")
		}
		a.HTTP = httpapi.NewServer(cfg.HTTPAddr, router, cfg.HTTPShutdown)
	}

	// === 5. Планировщик задач ===
	if cfg.JobsEnabled {
		a.Scheduler = jobs.NewScheduler(cfg, svc.Results, svc.Economy, svc.Photos,
			func(ctx context.Context, before string) (int64, error) {
				return throttle.Purge(ctx, pool, before)
			})
	}

	return a, nil
}

func newServices(pool *pgxpool.Pool, cfg *config.Config) *Services {
	settingsService := settings.NewService(settings.NewRepository(pool), cfg.SettingsTTL)
	meanCache := globalmean.NewCache(globalmean.NewRepository(pool),
		func(ctx context.Context) (float64, float64) {
			s := settingsService.GetEffectiveSettings(ctx)
			return s.LinkRatingWeight, s.GlobalMeanFallback
		}, cfg.GlobalMeanTTL)
	economyService := economy.NewService(pool, economy.NewRepository(pool), settingsService)

	return &Services{
		Members:    members.NewService(members.NewRepository(pool)),
		Photos:     photos.NewService(photos.NewRepository(pool), cfg.PhotoLifetime),
		Settings:   settingsService,
		GlobalMean: meanCache,
		Economy:    economyService,
		Ratings:    ratings.NewService(pool, ratings.NewRepository(pool), economyService, settingsService, meanCache),
		Feed: feed.NewService(pool, feed.NewRepository(pool), economyService, settingsService,
			feed.NewRand(), cfg.FeedMode),
		Results: results.NewService(pool, results.NewRepository(pool), settingsService, meanCache, cfg.ResultsLimit),
		Admin:   admin.NewService(admin.NewRepository(pool), cfg),
	}
}

func newBot(ctx context.Context, cfg *config.Config, svc *Services) (*bot.Bot, error) {
	api, username, err := bot.NewAPI(ctx, cfg.TelegramBotToken)
	if err != nil {
		return nil, err
	}
	sender := bot.NewSender(api)

	handlers := bot.Handlers{
		Members: members.NewHandler(svc.Members, sender),
		Photos:  photos.NewHandler(svc.Photos, svc.Members, sender),
		Feed:    feed.NewHandler(svc.Feed, sender),
		Ratings: ratings.NewHandler(svc.Ratings, sender),
		Results: results.NewHandler(svc.Results, sender),
		Economy: economy.NewHandler(svc.Economy, sender),
		Admin:   admin.NewHandler(svc.Admin, svc.Economy, svc.Settings, svc.Results, svc.Members, svc.Photos, sender),
	}
	return bot.New(api, cfg, username, sender, svc.Members, handlers), nil
}

// Run запускает включённые компоненты и блокируется до отмены ctx.
// Ошибка любого транспорта останавливает остальные.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			return err
		}
		defer a.Scheduler.Stop()
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				log.WithError(err).WithField("component", name).Error("Компонент остановился с ошибкой")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancel()
			}
		}()
	}
	if a.Bot != nil {
		start("bot", a.Bot.Start)
	}
	if a.HTTP != nil {
		start("http", a.HTTP.Run)
	}

	log.WithFields(log.Fields{
		"bot":  a.Bot != nil,
		"http": a.HTTP != nil,
		"jobs": a.Scheduler != nil,
	}).Info("=== Сервис готов к работе ===")

	wg.Wait()
	return errors.Join(errs...)
}

// Close освобождает ресурсы.
func (a *App) Close() {
	a.DB.Close()
}
