// Package results — handlers.go: команда бота /top.
package results

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/features/scoring"
)

// Handler показывает посчитанные итоги.
type Handler struct {
	service *Service
	sender  common.Sender
	now     func() time.Time
}

// NewHandler создаёт обработчик итогов.
func NewHandler(service *Service, sender common.Sender) *Handler {
	return &Handler{service: service, sender: sender, now: common.GetMoscowTime}
}

var scopeWords = map[string]string{
	"city":    scoring.ScopeCity,
	"город":   scoring.ScopeCity,
	"country": scoring.ScopeCountry,
	"страна":  scoring.ScopeCountry,
	"tag":     scoring.ScopeTagEvent,
	"тег":     scoring.ScopeTagEvent,
}

// parseTopArgs разбирает «/top [week|all] [authors] [2026-10-15] [city Москва]».
// Скоуп идёт последним: имя может состоять из нескольких слов.
func parseTopArgs(args []string, now time.Time) (Key, error) {
	key := DayKey(scoring.ScopeGlobal, "", common.DayKey(now))
	for i := 0; i < len(args); i++ {
		word := strings.ToLower(args[i])
		if scope, ok := scopeWords[word]; ok {
			key.ScopeType = scope
			key.ScopeKey = strings.Join(args[i+1:], " ")
			break
		}
		switch {
		case word == "week" || word == "неделя":
			key.Period, key.PeriodKey = PeriodWeek, common.WeekKey(now)
		case word == "all" || word == "всё" || word == "все":
			key.Period = PeriodAllTime
		case word == "authors" || word == "авторы":
			key.Kind = KindBestAuthor
		default:
			if _, err := common.ParseDayKey(word); err != nil {
				return key, fmt.Errorf("непонятный аргумент %q", args[i])
			}
			key.Period, key.PeriodKey = PeriodDay, word
		}
	}
	return key.Normalize()
}

// HandleTop — /top: места выбранного ключа итогов.
func (h *Handler) HandleTop(ctx context.Context, chatID int64, args []string) {
	key, err := parseTopArgs(args, h.now())
	if err != nil {
		h.sender.SendText(ctx, chatID, "❌ "+err.Error()+
			"\nПримеры: /top, /top week, /top authors, /top 2026-10-15 city Москва")
		return
	}
	entries, err := h.service.Entries(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrInvalidResultsKey) {
			h.sender.SendText(ctx, chatID, "❌ "+err.Error())
			return
		}
		log.WithError(err).WithField("key", key.String()).Error("Ошибка чтения итогов")
		h.sender.SendText(ctx, chatID, "❌ Не удалось получить итоги")
		return
	}
	h.sender.SendText(ctx, chatID, formatEntries(key, entries))
}

func title(k Key) string {
	var period string
	switch k.Period {
	case PeriodWeek:
		period = "недели " + k.PeriodKey
	case PeriodAllTime:
		period = "за всё время"
	default:
		period = "дня " + k.PeriodKey
	}
	what := "🏆 Лучшие фото"
	if k.Kind == KindBestAuthor {
		what = "👑 Лучший автор"
	}
	if k.ScopeType != scoring.ScopeGlobal {
		return fmt.Sprintf("%s %s (%s)", what, period, k.ScopeKey)
	}
	return what + " " + period
}

func formatEntries(k Key, entries []Entry) string {
	if len(entries) == 0 {
		return title(k) + "\nИтоги ещё не подведены или участников слишком мало"
	}
	var sb strings.Builder
	sb.WriteString(title(k))
	for _, e := range entries {
		author := e.Payload.AuthorName
		if e.Payload.AuthorUsername != "" {
			author = "@" + e.Payload.AuthorUsername
		}
		if k.Kind == KindBestAuthor {
			fmt.Fprintf(&sb, "\n%d. %s · %s", e.Place, author, common.FormatScore(e.Score))
			continue
		}
		fmt.Fprintf(&sb, "\n%d. «%s» · %s · %s (%s)", e.Place, e.Payload.Title, author,
			common.FormatScore(e.Score), common.FormatVotes(int64(e.Payload.RatingsCount)))
	}
	return sb.String()
}
