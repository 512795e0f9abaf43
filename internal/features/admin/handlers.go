// Package admin — handlers.go: админ-команды бота в личных сообщениях.
// Команды: /login, /logout, /credits, /settings, /recalc, /premium, /photo.
// Всё, кроме /login, требует открытой сессии.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/features/economy"
	"glowshot.ru/rating-bot/internal/features/photos"
	"glowshot.ru/rating-bot/internal/features/settings"
)

// Ledger — админские операции с кредитами.
type Ledger interface {
	AdminAddCredits(ctx context.Context, adminID, userID, amount int64) (*economy.Account, error)
	AdminRemoveCredits(ctx context.Context, adminID, userID, amount int64) (*economy.Account, error)
	AdminGrantAll(ctx context.Context, adminID, amount int64) (int64, error)
	AdminResetAll(ctx context.Context, adminID int64) (int64, error)
	GrantDailyCredits(ctx context.Context, day string) (int64, error)
}

// SettingsAdmin — переопределения настроек экономики.
type SettingsAdmin interface {
	List(ctx context.Context) ([]settings.Field, error)
	Set(ctx context.Context, key, raw string) (string, error)
	Reset(ctx context.Context, key string) error
}

// ResultsAdmin — принудительный пересчёт итогов.
type ResultsAdmin interface {
	RecalculateDay(ctx context.Context, day string, force bool) (int, error)
}

// Premium — выдача премиума (вызов платёжного контура).
type Premium interface {
	GrantPremium(ctx context.Context, userID int64, days int) (time.Time, error)
}

// PhotoModeration — модераторские действия с фото.
type PhotoModeration interface {
	Delete(ctx context.Context, photoID, actorID int64, byModerator bool) error
	Moderate(ctx context.Context, photoID int64, status string) (int64, error)
	PendingReports(ctx context.Context, photoID int64) (int, error)
}

// Handler обрабатывает админ-команды.
type Handler struct {
	service  *Service
	ledger   Ledger
	settings SettingsAdmin
	results  ResultsAdmin
	premium  Premium
	photos   PhotoModeration
	sender   common.Sender
}

// NewHandler создаёт обработчик админ-команд.
func NewHandler(service *Service, ledger Ledger, st SettingsAdmin, res ResultsAdmin,
	premium Premium, mod PhotoModeration, sender common.Sender) *Handler {
	return &Handler{
		service:  service,
		ledger:   ledger,
		settings: st,
		results:  res,
		premium:  premium,
		photos:   mod,
		sender:   sender,
	}
}

// HandleLogin — /login <пароль>.
func (h *Handler) HandleLogin(ctx context.Context, chatID, userID int64, args []string) {
	if !h.service.IsAdmin(userID) {
		h.sender.SendText(ctx, chatID, "❌ "+common.ErrNotAdmin.Error())
		return
	}
	if len(args) == 0 {
		h.sender.SendText(ctx, chatID, "🔐 Использование: /login <пароль>")
		return
	}
	session, err := h.service.Login(ctx, userID, strings.Join(args, " "))
	if err != nil {
		h.sender.SendText(ctx, chatID, userError(err))
		return
	}
	h.sender.SendText(ctx, chatID, fmt.Sprintf(
		"✅ Аутентификация успешна!\nСессия до %s\nТокен для HTTP: %s",
		common.FormatDateTime(session.ExpiresAt), session.Token,
	))
}

// HandleLogout — /logout.
func (h *Handler) HandleLogout(ctx context.Context, chatID, userID int64) {
	if !h.service.IsAdmin(userID) {
		return
	}
	if err := h.service.Logout(ctx, userID); err != nil {
		log.WithError(err).Error("Ошибка выхода администратора")
		h.sender.SendText(ctx, chatID, "❌ Не удалось закрыть сессию")
		return
	}
	h.sender.SendText(ctx, chatID, "👋 Сессия закрыта")
}

// authorized проверяет права и сессию, при отказе отвечает сам.
func (h *Handler) authorized(ctx context.Context, chatID, userID int64) bool {
	if !h.service.IsAdmin(userID) {
		h.sender.SendText(ctx, chatID, "❌ "+common.ErrNotAdmin.Error())
		return false
	}
	if !h.service.HasActiveSession(ctx, userID) {
		h.sender.SendText(ctx, chatID, "🔐 Сначала войдите: /login <пароль>")
		return false
	}
	return true
}

// creditsCommand — разобранная команда /credits.
type creditsCommand struct {
	Op     string
	UserID int64
	Amount int64
	Day    string
}

const creditsUsage = `Использование:
/credits add <user_id> <кол-во>
/credits remove <user_id> <кол-во>
/credits grantall <кол-во>
/credits reset
/credits daily [YYYY-MM-DD]`

func parseCreditsArgs(args []string) (creditsCommand, error) {
	if len(args) == 0 {
		return creditsCommand{}, errors.New("нет подкоманды")
	}
	cmd := creditsCommand{Op: strings.ToLower(args[0])}
	switch cmd.Op {
	case "add", "remove":
		if len(args) != 3 {
			return cmd, errors.New("нужны user_id и количество")
		}
		var err error
		if cmd.UserID, err = strconv.ParseInt(args[1], 10, 64); err != nil {
			return cmd, fmt.Errorf("некорректный user_id %q", args[1])
		}
		if cmd.Amount, err = strconv.ParseInt(args[2], 10, 64); err != nil {
			return cmd, fmt.Errorf("некорректное количество %q", args[2])
		}
	case "grantall":
		if len(args) != 2 {
			return cmd, errors.New("нужно количество")
		}
		var err error
		if cmd.Amount, err = strconv.ParseInt(args[1], 10, 64); err != nil {
			return cmd, fmt.Errorf("некорректное количество %q", args[1])
		}
	case "reset":
	case "daily":
		cmd.Day = common.DayKey(common.GetMoscowTime())
		if len(args) > 1 {
			cmd.Day = args[1]
		}
	default:
		return cmd, fmt.Errorf("неизвестная подкоманда %q", cmd.Op)
	}
	return cmd, nil
}

// HandleCredits — /credits: ручные операции с кредитами.
func (h *Handler) HandleCredits(ctx context.Context, chatID, userID int64, args []string) {
	if !h.authorized(ctx, chatID, userID) {
		return
	}
	cmd, err := parseCreditsArgs(args)
	if err != nil {
		h.sender.SendText(ctx, chatID, fmt.Sprintf("❌ %s\n\n%s", err, creditsUsage))
		return
	}

	var reply string
	switch cmd.Op {
	case "add", "remove":
		var acc *economy.Account
		if cmd.Op == "add" {
			acc, err = h.ledger.AdminAddCredits(ctx, userID, cmd.UserID, cmd.Amount)
		} else {
			acc, err = h.ledger.AdminRemoveCredits(ctx, userID, cmd.UserID, cmd.Amount)
		}
		if err == nil {
			reply = fmt.Sprintf("✅ Баланс %d: %s, %s",
				cmd.UserID, common.FormatCredits(acc.Credits), common.FormatShows(acc.ShowTokens))
		}
	case "grantall":
		var n int64
		if n, err = h.ledger.AdminGrantAll(ctx, userID, cmd.Amount); err == nil {
			reply = fmt.Sprintf("✅ Начислено %s на %d счетов", common.FormatCredits(cmd.Amount), n)
		}
	case "reset":
		var n int64
		if n, err = h.ledger.AdminResetAll(ctx, userID); err == nil {
			reply = fmt.Sprintf("✅ Обнулено счетов: %d", n)
		}
	case "daily":
		var n int64
		if n, err = h.ledger.GrantDailyCredits(ctx, cmd.Day); err == nil {
			reply = fmt.Sprintf("✅ Ежедневные кредиты за %s: %d получателей", cmd.Day, n)
		}
	}
	if err != nil {
		h.sender.SendText(ctx, chatID, userError(err))
		return
	}
	h.sender.SendText(ctx, chatID, reply)
}

// HandleSettings — /settings [set <key> <value> | reset <key>].
func (h *Handler) HandleSettings(ctx context.Context, chatID, userID int64, args []string) {
	if !h.authorized(ctx, chatID, userID) {
		return
	}

	switch {
	case len(args) == 0 || args[0] == "list":
		fields, err := h.settings.List(ctx)
		if err != nil {
			h.sender.SendText(ctx, chatID, userError(err))
			return
		}
		h.sender.SendText(ctx, chatID, formatSettings(fields))
	case args[0] == "set" && len(args) == 3:
		value, err := h.settings.Set(ctx, args[1], args[2])
		if err != nil {
			h.sender.SendText(ctx, chatID, userError(err))
			return
		}
		h.sender.SendText(ctx, chatID, fmt.Sprintf("✅ %s = %s", args[1], value))
	case args[0] == "reset" && len(args) == 2:
		if err := h.settings.Reset(ctx, args[1]); err != nil {
			h.sender.SendText(ctx, chatID, userError(err))
			return
		}
		h.sender.SendText(ctx, chatID, fmt.Sprintf("✅ %s сброшена к значению по умолчанию", args[1]))
	default:
		h.sender.SendText(ctx, chatID, "Использование: /settings [list | set <ключ> <значение> | reset <ключ>]")
	}
}

// HandleRecalc — /recalc [YYYY-MM-DD]: принудительный пересчёт дневных итогов.
func (h *Handler) HandleRecalc(ctx context.Context, chatID, userID int64, args []string) {
	if !h.authorized(ctx, chatID, userID) {
		return
	}
	day := common.DayKey(common.GetMoscowTime())
	if len(args) > 0 {
		day = args[0]
	}
	n, err := h.results.RecalculateDay(ctx, day, true)
	if err != nil {
		log.WithError(err).WithField("day", day).Error("Ошибка пересчёта итогов")
		h.sender.SendText(ctx, chatID, fmt.Sprintf("⚠️ Пересчитано ключей: %d, есть ошибки: %s", n, userError(err)))
		return
	}
	h.sender.SendText(ctx, chatID, fmt.Sprintf("✅ Итоги за %s пересчитаны, ключей: %d", day, n))
}

// parsePremiumArgs разбирает /premium <user_id> <дней>.
func parsePremiumArgs(args []string) (userID int64, days int, err error) {
	if len(args) != 2 {
		return 0, 0, errors.New("нужны user_id и число дней")
	}
	if userID, err = strconv.ParseInt(args[0], 10, 64); err != nil || userID <= 0 {
		return 0, 0, fmt.Errorf("некорректный user_id %q", args[0])
	}
	if days, err = strconv.Atoi(args[1]); err != nil {
		return 0, 0, fmt.Errorf("некорректное число дней %q", args[1])
	}
	return userID, days, nil
}

// HandlePremium — /premium <user_id> <дней>: продление премиума.
func (h *Handler) HandlePremium(ctx context.Context, chatID, userID int64, args []string) {
	if !h.authorized(ctx, chatID, userID) {
		return
	}
	target, days, err := parsePremiumArgs(args)
	if err != nil {
		h.sender.SendText(ctx, chatID, fmt.Sprintf("❌ %s\nИспользование: /premium <user_id> <дней>", err))
		return
	}
	until, err := h.premium.GrantPremium(ctx, target, days)
	if err != nil {
		h.sender.SendText(ctx, chatID, userError(err))
		return
	}
	log.WithFields(log.Fields{
		"admin_id": userID,
		"user_id":  target,
		"days":     days,
	}).Info("Администратор выдал премиум")
	h.sender.SendText(ctx, chatID, fmt.Sprintf("⭐ Премиум для %d до %s", target, common.FormatDateTime(until)))
}

// photoOps — подкоманды /photo и статус модерации, который они выставляют.
var photoOps = map[string]string{
	"delete":  "",
	"info":    "",
	"approve": photos.ModerationActive,
	"reject":  photos.ModerationRejected,
	"review":  photos.ModerationPending,
}

const photoUsage = "Использование: /photo <info|approve|reject|review|delete> <номер фото>"

func parsePhotoArgs(args []string) (op string, photoID int64, err error) {
	if len(args) != 2 {
		return "", 0, errors.New("нужны подкоманда и номер фото")
	}
	op = strings.ToLower(args[0])
	if _, ok := photoOps[op]; !ok {
		return "", 0, fmt.Errorf("неизвестная подкоманда %q", op)
	}
	photoID, err = strconv.ParseInt(strings.TrimPrefix(args[1], "#"), 10, 64)
	if err != nil || photoID <= 0 {
		return "", 0, fmt.Errorf("некорректный номер фото %q", args[1])
	}
	return op, photoID, nil
}

// HandlePhoto — /photo: модерация фото.
func (h *Handler) HandlePhoto(ctx context.Context, chatID, userID int64, args []string) {
	if !h.authorized(ctx, chatID, userID) {
		return
	}
	op, photoID, err := parsePhotoArgs(args)
	if err != nil {
		h.sender.SendText(ctx, chatID, fmt.Sprintf("❌ %s\n%s", err, photoUsage))
		return
	}

	var reply string
	switch op {
	case "delete":
		if err = h.photos.Delete(ctx, photoID, userID, true); err == nil {
			reply = fmt.Sprintf("🗑 Фото #%d удалено, итоги очищены", photoID)
		}
	case "info":
		var n int
		if n, err = h.photos.PendingReports(ctx, photoID); err == nil {
			reply = fmt.Sprintf("🚩 Открытых жалоб на фото #%d: %d", photoID, n)
		}
	default:
		var resolved int64
		if resolved, err = h.photos.Moderate(ctx, photoID, photoOps[op]); err == nil {
			reply = fmt.Sprintf("✅ Фото #%d: %s, закрыто жалоб: %d", photoID, photoOps[op], resolved)
		}
	}
	if err != nil {
		h.sender.SendText(ctx, chatID, userError(err))
		return
	}
	h.sender.SendText(ctx, chatID, reply)
}

func formatSettings(fields []settings.Field) string {
	var sb strings.Builder
	sb.WriteString("⚙️ Настройки экономики\n")
	for _, f := range fields {
		fmt.Fprintf(&sb, "\n%s = %s", f.Key, f.Effective)
		if f.Override != "" {
			sb.WriteString(" ✏️")
		}
	}
	return sb.String()
}

// userError переводит ошибку в текст для администратора.
// Известные ошибки показываются как есть, остальные скрываются.
func userError(err error) string {
	for _, known := range []error{
		common.ErrInvalidAmount, common.ErrUnknownSetting, common.ErrInvalidSetting,
		common.ErrInvalidResultsKey, common.ErrNotAdmin, common.ErrWrongPassword,
		common.ErrTooManyAttempts, common.ErrSessionExpired, common.ErrUserNotFound,
		common.ErrPhotoNotFound, common.ErrInvalidModeration, common.ErrInvalidDays,
	} {
		if errors.Is(err, known) {
			return "❌ " + err.Error()
		}
	}
	log.WithError(err).Error("Ошибка админ-команды")
	return "❌ Внутренняя ошибка, попробуйте позже"
}
