// Package economy — handlers.go: команды бота для просмотра баланса.
package economy

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
)

// Handler обрабатывает команды экономики.
type Handler struct {
	service *Service
	sender  common.Sender
}

// NewHandler создаёт обработчик команд экономики.
func NewHandler(service *Service, sender common.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleBalance — /balance: кредиты, показы и активность за сегодня.
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	acc, err := h.service.GetAccount(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения счёта")
		h.sender.SendText(ctx, chatID, "❌ Не удалось получить баланс")
		return
	}
	h.sender.SendText(ctx, chatID, formatBalance(acc, common.DayKey(common.GetMoscowTime())))
}

// HandleHistory — /history: последние движения по счёту.
func (h *Handler) HandleHistory(ctx context.Context, chatID, userID int64) {
	entries, err := h.service.History(ctx, userID, 10)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения журнала")
		h.sender.SendText(ctx, chatID, "❌ Не удалось получить историю")
		return
	}
	h.sender.SendText(ctx, chatID, formatHistory(entries))
}

func formatBalance(acc *Account, today string) string {
	var sb strings.Builder
	sb.WriteString("💰 Баланс\n")
	fmt.Fprintf(&sb, "Кредиты: %s\n", common.FormatCredits(acc.Credits))
	fmt.Fprintf(&sb, "Показы: %s\n", common.FormatShows(acc.ShowTokens))
	if acc.CountersDay == today {
		fmt.Fprintf(&sb, "Сегодня: %s, %s вашим фото",
			common.FormatVotes(int64(acc.VotesToday)), common.FormatShows(int64(acc.ImpressionsToday)))
	} else {
		sb.WriteString("Сегодня: пока без активности")
	}
	return sb.String()
}

var kindTitles = map[string]string{
	KindVoteReward: "оценка",
	KindConvert:    "конвертация",
	KindImpression: "показ",
	KindAdminGive:  "выдача",
	KindAdminTake:  "изъятие",
	KindGrantAll:   "бонус всем",
	KindResetAll:   "обнуление",
	KindDailyGrant: "ежедневный бонус",
}

func formatHistory(entries []LogEntry) string {
	if len(entries) == 0 {
		return "📜 История пуста"
	}
	var sb strings.Builder
	sb.WriteString("📜 Последние движения:\n")
	for _, e := range entries {
		title := kindTitles[e.Kind]
		if title == "" {
			title = e.Kind
		}
		fmt.Fprintf(&sb, "%s  %s", common.FormatDateTime(e.CreatedAt), title)
		if e.CreditsDelta != 0 {
			fmt.Fprintf(&sb, "  %s", common.FormatCreditsAmount(e.CreditsDelta))
		}
		if e.TokensDelta != 0 {
			fmt.Fprintf(&sb, "  %+d %s", e.TokensDelta, common.PluralizeShows(e.TokensDelta))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
