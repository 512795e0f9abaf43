// Package photos — handlers.go: публикация фото, присланного боту,
// и команды /delete, /report, /comment.
package photos

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
)

// Referrals засчитывает приглашение автора после его первой публикации.
type Referrals interface {
	QualifyReferral(ctx context.Context, inviteeID int64) error
}

// Handler публикует фото из сообщений.
type Handler struct {
	service   *Service
	referrals Referrals
	sender    common.Sender
}

// NewHandler создаёт обработчик публикации.
func NewHandler(service *Service, referrals Referrals, sender common.Sender) *Handler {
	return &Handler{service: service, referrals: referrals, sender: sender}
}

// parseCaption разбирает подпись «#тег название». Тег необязателен.
// Подпись «!norate ...» публикует фото без оценок.
func parseCaption(caption string) (title, tag string, ratings bool) {
	ratings = true
	caption = strings.TrimSpace(caption)
	if rest, ok := strings.CutPrefix(caption, "!norate"); ok {
		ratings = false
		caption = strings.TrimSpace(rest)
	}
	if strings.HasPrefix(caption, "#") {
		first, rest, _ := strings.Cut(caption, " ")
		tag = strings.TrimPrefix(first, "#")
		caption = strings.TrimSpace(rest)
	}
	return caption, tag, ratings
}

// HandlePublish публикует фото с подписью caption.
func (h *Handler) HandlePublish(ctx context.Context, chatID, userID int64, fileID, caption string) {
	title, tag, ratings := parseCaption(caption)
	p, err := h.service.Publish(ctx, PublishRequest{
		UserID:         userID,
		FileID:         fileID,
		Title:          title,
		Tag:            tag,
		RatingsEnabled: ratings,
	})
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка публикации фото")
		h.sender.SendText(ctx, chatID, "❌ Не удалось опубликовать фото")
		return
	}
	if h.referrals != nil {
		if err := h.referrals.QualifyReferral(ctx, userID); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось засчитать приглашение")
		}
	}
	h.sender.SendText(ctx, chatID, fmt.Sprintf(
		"✅ Фото #%d опубликовано и будет в ленте до %s",
		p.ID, common.FormatDateTime(*p.ExpiresAt),
	))
}

// parsePhotoID читает номер фото из первого аргумента («42» или «#42»).
func parsePhotoID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errors.New("не указан номер фото")
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("некорректный номер фото %q", args[0])
	}
	return id, nil
}

// replyError отвечает на ошибку команды с фото. Неизвестные ошибки логируются.
func (h *Handler) replyError(ctx context.Context, chatID int64, op string, err error) {
	switch {
	case errors.Is(err, common.ErrPhotoNotFound):
		h.sender.SendText(ctx, chatID, "❌ Фото не найдено")
	case errors.Is(err, common.ErrInvalidComment):
		h.sender.SendText(ctx, chatID, "❌ "+err.Error())
	default:
		log.WithError(err).WithField("op", op).Error("Ошибка команды с фото")
		h.sender.SendText(ctx, chatID, "❌ Не удалось выполнить команду, попробуйте позже")
	}
}

// HandleDelete — /delete <id>: автор удаляет своё фото.
func (h *Handler) HandleDelete(ctx context.Context, chatID, userID int64, args []string) {
	photoID, err := parsePhotoID(args)
	if err != nil {
		h.sender.SendText(ctx, chatID, fmt.Sprintf("❌ %s\nИспользование: /delete <номер фото>", err))
		return
	}
	if err := h.service.Delete(ctx, photoID, userID, false); err != nil {
		h.replyError(ctx, chatID, "delete", err)
		return
	}
	h.sender.SendText(ctx, chatID, fmt.Sprintf("🗑 Фото #%d удалено", photoID))
}

// HandleReport — /report <id>: жалоба на фото.
func (h *Handler) HandleReport(ctx context.Context, chatID, userID int64, args []string) {
	photoID, err := parsePhotoID(args)
	if err != nil {
		h.sender.SendText(ctx, chatID, fmt.Sprintf("❌ %s\nИспользование: /report <номер фото>", err))
		return
	}
	if _, err := h.service.Report(ctx, photoID, userID); err != nil {
		h.replyError(ctx, chatID, "report", err)
		return
	}
	h.sender.SendText(ctx, chatID, "🚩 Жалоба принята, спасибо")
}

// HandleComment — /comment <id> <текст>.
func (h *Handler) HandleComment(ctx context.Context, chatID, userID int64, args []string) {
	photoID, err := parsePhotoID(args)
	if err == nil && len(args) < 2 {
		err = errors.New("нет текста комментария")
	}
	if err != nil {
		h.sender.SendText(ctx, chatID, fmt.Sprintf("❌ %s\nИспользование: /comment <номер фото> <текст>", err))
		return
	}
	if err := h.service.Comment(ctx, photoID, userID, strings.Join(args[1:], " ")); err != nil {
		h.replyError(ctx, chatID, "comment", err)
		return
	}
	h.sender.SendText(ctx, chatID, fmt.Sprintf("💬 Комментарий к фото #%d сохранён", photoID))
}
