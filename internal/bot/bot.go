// Package bot содержит транспорт Telegram: long polling, фильтры, лимиты
// и маршрутизацию команд к обработчикам модулей.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/bot/filters"
	"glowshot.ru/rating-bot/internal/bot/middleware"
	"glowshot.ru/rating-bot/internal/config"
	"glowshot.ru/rating-bot/internal/features/admin"
	"glowshot.ru/rating-bot/internal/features/economy"
	"glowshot.ru/rating-bot/internal/features/feed"
	"glowshot.ru/rating-bot/internal/features/members"
	"glowshot.ru/rating-bot/internal/features/photos"
	"glowshot.ru/rating-bot/internal/features/ratings"
	"glowshot.ru/rating-bot/internal/features/results"
)

// Handlers — обработчики команд модулей.
type Handlers struct {
	Members *members.Handler
	Photos  *photos.Handler
	Feed    *feed.Handler
	Ratings *ratings.Handler
	Results *results.Handler
	Economy *economy.Handler
	Admin   *admin.Handler
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api    *telego.Bot
	cfg    *config.Config
	sender *Sender

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	memberService *members.Service
	handlers      Handlers

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// NewAPI создаёт клиент Bot API с логированием через logrus и узнаёт имя бота.
func NewAPI(ctx context.Context, token string) (*telego.Bot, string, error) {
	api, err := telego.NewBot(token, telego.WithLogger(log.WithField("component", "telego")))
	if err != nil {
		return nil, "", fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	me, err := api.GetMe(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка getMe: %w", err)
	}
	log.Infof("Авторизован как @%s", me.Username)
	return api, me.Username, nil
}

// New создаёт бота. sender должен быть создан поверх того же api.
func New(
	api *telego.Bot,
	cfg *config.Config,
	botUsername string,
	sender *Sender,
	memberService *members.Service,
	handlers Handlers,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:           api,
		cfg:           cfg,
		sender:        sender,
		chatFilter:    filters.NewChatFilter("top", "итоги"),
		rateLimiter:   middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		memberService: memberService,
		handlers:      handlers,
		parser:        NewCommandParser(botUsername),
		inflight:      make(chan struct{}, maxInFlight),
	}
}

// Start запускает long polling и блокируется до отмены ctx.
// Перед возвратом дожидается обработчиков, которые уже работают.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        b.cfg.BotUpdateTimeoutSeconds,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return fmt.Errorf("ошибка запуска long polling: %w", err)
	}

	go b.rateLimiter.Run(ctx, 5*time.Minute)

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	// Канал закрывается telego после отмены ctx
	for update := range updates {
		b.inflight <- struct{}{}
		b.wg.Add(1)
		go func(upd telego.Update) {
			defer func() {
				<-b.inflight
				b.wg.Done()
			}()
			b.handleUpdate(ctx, upd)
		}(update)
	}

	b.wg.Wait()
	log.Info("Бот остановлен")
	return nil
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	message := update.Message
	if message == nil {
		return
	}
	middleware.LogMessage(message)

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !b.chatFilter.CheckAccess(message, cmd) {
		return
	}
	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	// Без строки в members не работают оценки, города и приглашения
	if err := b.memberService.EnsureMember(ctx, userID, message.From.Username, message.From.FirstName); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("EnsureMember failed")
	}

	if len(message.Photo) > 0 {
		// Telegram присылает несколько размеров, последний — самый крупный
		largest := message.Photo[len(message.Photo)-1]
		b.handlers.Photos.HandlePublish(ctx, chatID, userID, largest.FileID, message.Caption)
		return
	}

	if isCommand {
		b.routeCommand(ctx, message.Chat.Type == telego.ChatTypePrivate, chatID, userID, cmd, args)
	}
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, private bool, chatID, userID int64, cmd string, args []string) {
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")

	h := b.handlers
	switch cmd {
	case "start", "help", "помощь":
		h.Members.HandleStart(ctx, chatID, userID, args)
	case "next", "дальше":
		h.Feed.HandleNext(ctx, chatID, userID)
	case "rate", "оценить":
		h.Ratings.HandleRate(ctx, chatID, userID, args)
	case "top", "итоги":
		h.Results.HandleTop(ctx, chatID, args)
	case "balance", "баланс":
		h.Economy.HandleBalance(ctx, chatID, userID)
	case "history", "история":
		h.Economy.HandleHistory(ctx, chatID, userID)
	case "rank", "ранг":
		h.Ratings.HandleRank(ctx, chatID, userID)
	case "profile", "профиль":
		h.Members.HandleProfile(ctx, chatID, userID)
	case "city", "город":
		h.Members.HandleLocation(ctx, chatID, userID, args)
	case "delete", "удалить":
		h.Photos.HandleDelete(ctx, chatID, userID, args)
	case "report", "жалоба":
		h.Photos.HandleReport(ctx, chatID, userID, args)
	case "comment", "коммент":
		h.Photos.HandleComment(ctx, chatID, userID, args)

	// Админка
	case "login":
		h.Admin.HandleLogin(ctx, chatID, userID, args)
	case "logout":
		h.Admin.HandleLogout(ctx, chatID, userID)
	case "credits":
		h.Admin.HandleCredits(ctx, chatID, userID, args)
	case "settings":
		h.Admin.HandleSettings(ctx, chatID, userID, args)
	case "recalc":
		h.Admin.HandleRecalc(ctx, chatID, userID, args)
	case "premium":
		h.Admin.HandlePremium(ctx, chatID, userID, args)
	case "photo":
		h.Admin.HandlePhoto(ctx, chatID, userID, args)

	default:
		if private {
			b.sender.SendText(ctx, chatID, "🤷 Неизвестная команда, список — /help")
		}
	}
}
