package filters

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
)

func message(chatType string, from *telego.User) *telego.Message {
	return &telego.Message{
		Chat: telego.Chat{ID: -100, Type: chatType},
		From: from,
	}
}

func TestCheckAccess(t *testing.T) {
	f := NewChatFilter("top")
	user := &telego.User{ID: 7, FirstName: "Аня"}

	assert.True(t, f.CheckAccess(message(telego.ChatTypePrivate, user), ""))
	assert.True(t, f.CheckAccess(message(telego.ChatTypePrivate, user), "rate"))
	assert.True(t, f.CheckAccess(message(telego.ChatTypeSupergroup, user), "top"))
	assert.False(t, f.CheckAccess(message(telego.ChatTypeSupergroup, user), "rate"))
	assert.False(t, f.CheckAccess(message(telego.ChatTypeGroup, user), ""))

	assert.False(t, f.CheckAccess(nil, ""))
	assert.False(t, f.CheckAccess(message(telego.ChatTypePrivate, nil), ""))
	assert.False(t, f.CheckAccess(message(telego.ChatTypePrivate, &telego.User{ID: 8, IsBot: true}), ""))
}
