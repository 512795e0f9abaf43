// Package ratings — handlers.go: команды бота /rate и /rank.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/features/scoring"
)

// Handler обрабатывает команды оценок.
type Handler struct {
	service *Service
	sender  common.Sender
}

// NewHandler создаёт обработчик оценок.
func NewHandler(service *Service, sender common.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

const rateUsage = "Использование: /rate <id фото> <оценка 1-10>"

func parseRateArgs(args []string) (photoID int64, value int, err error) {
	if len(args) != 2 {
		return 0, 0, errors.New(rateUsage)
	}
	photoID, err = strconv.ParseInt(args[0], 10, 64)
	if err != nil || photoID <= 0 {
		return 0, 0, errors.New(rateUsage)
	}
	value, err = strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, errors.New(rateUsage)
	}
	return photoID, value, nil
}

var outcomeTexts = map[Outcome]string{
	OutcomeAccepted:    "✅ Оценка принята, +1 кредит",
	OutcomeUnavailable: "🚫 Это фото сейчас нельзя оценить",
	OutcomeOwnPhoto:    "🙃 Свои фото оценивать нельзя",
	OutcomeThrottled:   "⏳ На сегодня лимит оценок этому автору исчерпан",
	OutcomeDuplicate:   "ℹ️ Вы уже оценили это фото",
}

// HandleRate — /rate <photo> <value>.
func (h *Handler) HandleRate(ctx context.Context, chatID, voterID int64, args []string) {
	photoID, value, err := parseRateArgs(args)
	if err != nil {
		h.sender.SendText(ctx, chatID, err.Error())
		return
	}
	outcome, err := h.service.Vote(ctx, voterID, photoID, value, SourceNormal)
	if err != nil {
		if errors.Is(err, common.ErrInvalidRating) {
			h.sender.SendText(ctx, chatID, "❌ "+err.Error())
			return
		}
		log.WithError(err).WithFields(log.Fields{
			"voter_id": voterID,
			"photo_id": photoID,
		}).Error("Ошибка записи оценки")
		h.sender.SendText(ctx, chatID, "❌ Не удалось сохранить оценку, попробуйте позже")
		return
	}
	h.sender.SendText(ctx, chatID, outcomeTexts[outcome])
}

// HandleRank — /rank: ступень автора по последним фото.
func (h *Handler) HandleRank(ctx context.Context, chatID, userID int64) {
	r, err := h.service.AuthorRank(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка расчёта ранга")
		h.sender.SendText(ctx, chatID, "❌ Не удалось посчитать ранг")
		return
	}
	h.sender.SendText(ctx, chatID, formatRank(r))
}

func formatRank(r *AuthorRank) string {
	text := fmt.Sprintf("🏅 Ваш ранг: %s\nОчки: %d", r.Rank.Label(), r.Points)
	for _, next := range scoring.Ranks {
		if next.Min > r.Points {
			text += fmt.Sprintf("\nДо «%s»: %d", next.Title, next.Min-r.Points)
			break
		}
	}
	return text
}
