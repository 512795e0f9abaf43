// Package filters решает, какие сообщения бот вообще обрабатывает.
package filters

import (
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает личные сообщения от людей. В группах отвечаем
// только на публичные команды (итоги), остальное молча игнорируем.
type ChatFilter struct {
	groupCommands map[string]bool
}

// NewChatFilter создаёт фильтр. groupCommands — команды, разрешённые в группах.
func NewChatFilter(groupCommands ...string) *ChatFilter {
	allowed := make(map[string]bool, len(groupCommands))
	for _, c := range groupCommands {
		allowed[c] = true
	}
	return &ChatFilter{groupCommands: allowed}
}

// CheckAccess проверяет сообщение. cmd — разобранная команда или "".
func (f *ChatFilter) CheckAccess(message *telego.Message, cmd string) bool {
	if message == nil {
		return false
	}
	if message.From == nil || message.From.IsBot {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
		}).Debug("deny: сервисное сообщение или бот")
		return false
	}
	if message.Chat.Type == telego.ChatTypePrivate {
		return true
	}
	if cmd != "" && f.groupCommands[cmd] {
		return true
	}
	log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"user_id":   message.From.ID,
		"cmd":       cmd,
	}).Debug("deny: не личка и не публичная команда")
	return false
}
