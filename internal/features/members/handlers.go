// Package members — handlers.go: /start с реферальной ссылкой, /city и /profile.
package members

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
)

const refPrefix = "ref_"

// Handler обрабатывает профильные команды.
type Handler struct {
	service *Service
	sender  common.Sender
}

// NewHandler создаёт обработчик профиля.
func NewHandler(service *Service, sender common.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

const welcome = `👋 Привет! Здесь оценивают фотографии.

Оценивайте чужие фото и получайте кредиты, кредиты превращаются в показы ваших фото.

/next — следующее фото
/rate <id> <1-10> — оценить
/top — итоги дня (/top week, /top authors, /top city Москва)
/balance, /history — кредиты и показы
/rank — ваш ранг автора
/city Город, Страна — местоположение для городских итогов
/comment <id> <текст>, /report <id> — комментарий или жалоба
/delete <id> — удалить своё фото
Отправьте фото с подписью, чтобы опубликовать его (#тег в начале подписи)`

// parseReferral достаёт ID пригласившего из /start ref_<id>.
func parseReferral(args []string) (int64, bool) {
	if len(args) == 0 || !strings.HasPrefix(args[0], refPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], refPrefix), 10, 64)
	return id, err == nil && id > 0
}

// HandleStart — /start [ref_<id>].
func (h *Handler) HandleStart(ctx context.Context, chatID, userID int64, args []string) {
	if inviterID, ok := parseReferral(args); ok {
		if err := h.service.AddReferral(ctx, inviterID, userID, false); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"inviter_id": inviterID,
				"invitee_id": userID,
			}).Warn("Не удалось записать приглашение")
		}
	}
	h.sender.SendText(ctx, chatID, welcome)
}

// parseLocation разбирает «Город, Страна». Страна необязательна.
func parseLocation(args []string) Location {
	city, country, _ := strings.Cut(strings.Join(args, " "), ",")
	return Location{City: strings.TrimSpace(city), Country: strings.TrimSpace(country)}
}

// HandleLocation — /city Город, Страна.
func (h *Handler) HandleLocation(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) == 0 {
		h.sender.SendText(ctx, chatID, "Использование: /city Москва, Россия")
		return
	}
	loc := parseLocation(args)
	if err := h.service.SetLocation(ctx, userID, loc.City, loc.Country); err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			h.sender.SendText(ctx, chatID, "❌ Сначала выполните /start")
			return
		}
		log.WithError(err).WithField("user_id", userID).Error("Ошибка сохранения местоположения")
		h.sender.SendText(ctx, chatID, "❌ Не удалось сохранить местоположение")
		return
	}
	h.sender.SendText(ctx, chatID, "📍 Сохранено: "+formatLocation(loc))
}

// HandleProfile — /profile: местоположение, премиум и приглашения.
func (h *Handler) HandleProfile(ctx context.Context, chatID, userID int64) {
	m, err := h.service.GetByUserID(ctx, userID)
	if errors.Is(err, common.ErrUserNotFound) {
		h.sender.SendText(ctx, chatID, "❌ Сначала выполните /start")
		return
	}
	var invites int
	if err == nil {
		invites, err = h.service.QualifiedInviteCount(ctx, userID)
	}
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка чтения профиля")
		h.sender.SendText(ctx, chatID, "❌ Не удалось получить профиль")
		return
	}
	h.sender.SendText(ctx, chatID, formatProfile(m, invites, h.service.now()))
}

func formatProfile(m *Member, invites int, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 %s\n", m.DisplayName())
	fmt.Fprintf(&sb, "📍 %s\n", formatLocation(Location{City: m.City, Country: m.Country}))
	if m.IsPremiumAt(now) {
		fmt.Fprintf(&sb, "⭐ Премиум до %s\n", common.FormatDateTime(*m.PremiumUntil))
	}
	fmt.Fprintf(&sb, "🤝 Засчитанных приглашений: %d\n", invites)
	fmt.Fprintf(&sb, "Ссылка для друзей: /start %s%d", refPrefix, m.UserID)
	return sb.String()
}

func formatLocation(loc Location) string {
	switch {
	case loc.City == "" && loc.Country == "":
		return "не указано"
	case loc.Country == "":
		return loc.City
	case loc.City == "":
		return loc.Country
	}
	return loc.City + ", " + loc.Country
}
