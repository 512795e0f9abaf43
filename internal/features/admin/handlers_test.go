package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/config"
	"glowshot.ru/rating-bot/internal/features/settings"
)

type recordingSender struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSender) SendText(_ context.Context, _ int64, text string) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
}

func (s *recordingSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.texts) == 0 {
		return ""
	}
	return s.texts[len(s.texts)-1]
}

func TestParseCreditsArgs(t *testing.T) {
	cmd, err := parseCreditsArgs([]string{"ADD", "42", "10"})
	require.NoError(t, err)
	assert.Equal(t, creditsCommand{Op: "add", UserID: 42, Amount: 10}, cmd)

	cmd, err = parseCreditsArgs([]string{"grantall", "3"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), cmd.Amount)

	cmd, err = parseCreditsArgs([]string{"daily", "2026-10-15"})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", cmd.Day)

	cmd, err = parseCreditsArgs([]string{"daily"})
	require.NoError(t, err)
	assert.NotEmpty(t, cmd.Day)

	for _, args := range [][]string{
		nil,
		{"add", "42"},
		{"remove", "x", "1"},
		{"add", "1", "many"},
		{"grantall"},
		{"burn", "1"},
	} {
		_, err := parseCreditsArgs(args)
		assert.Error(t, err, fmt.Sprint(args))
	}
}

func TestHandlersRefuseNonAdmins(t *testing.T) {
	svc := NewService(nil, &config.Config{AdminIDs: []int64{1}})
	sender := &recordingSender{}
	h := NewHandler(svc, nil, nil, nil, nil, nil, sender)
	ctx := context.Background()

	h.HandleCredits(ctx, 7, 7, []string{"reset"})
	assert.Contains(t, sender.last(), common.ErrNotAdmin.Error())

	h.HandleLogin(ctx, 7, 7, []string{"pw"})
	assert.Contains(t, sender.last(), common.ErrNotAdmin.Error())

	h.HandlePremium(ctx, 7, 7, []string{"7", "30"})
	assert.Contains(t, sender.last(), common.ErrNotAdmin.Error())

	h.HandlePhoto(ctx, 7, 7, []string{"delete", "3"})
	assert.Contains(t, sender.last(), common.ErrNotAdmin.Error())

	h.HandleLogin(ctx, 1, 1, nil)
	assert.Contains(t, sender.last(), "/login <пароль>")
}

func TestParsePremiumArgs(t *testing.T) {
	userID, days, err := parsePremiumArgs([]string{"42", "30"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, 30, days)

	for _, args := range [][]string{nil, {"42"}, {"x", "30"}, {"42", "месяц"}, {"0", "1"}} {
		_, _, err := parsePremiumArgs(args)
		assert.Error(t, err, fmt.Sprint(args))
	}
}

func TestParsePhotoArgs(t *testing.T) {
	op, id, err := parsePhotoArgs([]string{"REJECT", "#12"})
	require.NoError(t, err)
	assert.Equal(t, "reject", op)
	assert.Equal(t, int64(12), id)
	assert.Equal(t, "rejected", photoOps[op])

	for _, args := range [][]string{nil, {"delete"}, {"burn", "1"}, {"info", "abc"}} {
		_, _, err := parsePhotoArgs(args)
		assert.Error(t, err, fmt.Sprint(args))
	}
}

func TestFormatSettings(t *testing.T) {
	text := formatSettings([]settings.Field{
		{Key: "tail_probability", Effective: "0.05"},
		{Key: "winner_cooldown_days", Effective: "3", Override: "3"},
	})
	assert.Contains(t, text, "tail_probability = 0.05\n")
	assert.Contains(t, text, "winner_cooldown_days = 3 ✏️")
}

func TestUserError(t *testing.T) {
	assert.Equal(t, "❌ "+common.ErrInvalidAmount.Error(), userError(common.ErrInvalidAmount))
	wrapped := fmt.Errorf("%w: foo", common.ErrUnknownSetting)
	assert.Equal(t, "❌ "+wrapped.Error(), userError(wrapped))
	assert.Equal(t, "❌ Внутренняя ошибка, попробуйте позже", userError(errors.New("pg down")))
}
