// Package middleware содержит промежуточные обработчики бота: журнал
// входящих сообщений, восстановление после паники и лимит запросов.
package middleware

import (
	"unicode/utf8"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

const maxLoggedText = 50

// LogMessage логирует входящее сообщение.
// Записывает: user_id, chat_id, username, текст (первые 50 символов), наличие фото.
func LogMessage(message *telego.Message) {
	if message == nil || message.From == nil {
		return
	}

	text := message.Text
	if text == "" {
		text = message.Caption
	}
	if utf8.RuneCountInString(text) > maxLoggedText {
		text = string([]rune(text)[:maxLoggedText]) + "..."
	}

	log.WithFields(log.Fields{
		"user_id":   message.From.ID,
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"username":  message.From.Username,
		"text":      text,
		"photo":     len(message.Photo) > 0,
	}).Debug("Входящее сообщение")
}
