// Package bot — sender.go: отправка сообщений через Telegram Bot API.
package bot

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// messenger — часть *telego.Bot, которой пользуется Sender.
type messenger interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
}

// Sender реализует common.PhotoSender поверх telego.
// Ошибки отправки только логируются: обработчику нечего с ними делать.
type Sender struct {
	api messenger
}

// NewSender создаёт отправителя сообщений.
func NewSender(api messenger) *Sender {
	return &Sender{api: api}
}

// SendText отправляет текстовое сообщение.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string) {
	if _, err := s.api.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendPhoto отправляет фото по file_id с подписью.
func (s *Sender) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) {
	params := tu.Photo(tu.ID(chatID), tu.FileFromID(fileID)).WithCaption(caption)
	if _, err := s.api.SendPhoto(ctx, params); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"file_id": fileID,
		}).Error("Ошибка отправки фото")
	}
}
