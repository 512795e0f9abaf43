// Package feed — handlers.go: команда бота /next.
package feed

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/features/photos"
)

// Handler показывает зрителю следующее фото.
type Handler struct {
	service *Service
	sender  common.PhotoSender
}

// NewHandler создаёт обработчик ленты.
func NewHandler(service *Service, sender common.PhotoSender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleNext — /next: следующее фото и подсказка, как его оценить.
func (h *Handler) HandleNext(ctx context.Context, chatID, viewerID int64) {
	p, err := h.service.NextPhotoForViewer(ctx, viewerID)
	if err != nil {
		log.WithError(err).WithField("viewer_id", viewerID).Error("Ошибка выдачи ленты")
		h.sender.SendText(ctx, chatID, "❌ Не удалось получить фото, попробуйте позже")
		return
	}
	if p == nil {
		h.sender.SendText(ctx, chatID, "🌙 Новых фото пока нет, загляните позже")
		return
	}
	h.sender.SendPhoto(ctx, chatID, p.FileID, caption(p))
}

func caption(p *photos.Photo) string {
	var sb strings.Builder
	if p.Title != "" {
		fmt.Fprintf(&sb, "📷 «%s»\n", p.Title)
	} else {
		sb.WriteString("📷 Без названия\n")
	}
	if p.Tag != "" {
		fmt.Fprintf(&sb, "#%s\n", p.Tag)
	}
	if p.RatingsEnabled {
		fmt.Fprintf(&sb, "Оценить: /rate %d <1-10>", p.ID)
	} else {
		sb.WriteString("Автор отключил оценки")
	}
	return sb.String()
}
