// Package results — итоги: топы фото по периодам и скоупам.
// Каждый ключ (период, ключ периода, скоуп, ключ скоупа, вид) имеет явный
// статус в results_status; пересчёт выполняется внешним триггером
// (cron или админский HTTP), чтение никогда не пересчитывает.
package results

import (
	"fmt"
	"strings"
	"time"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/features/scoring"
)

// Периоды
const (
	PeriodDay     = "day"
	PeriodWeek    = "week"
	PeriodAllTime = "all_time"
)

// Виды итогов
const (
	KindTopPhotos  = "top_photos"
	KindBestAuthor = "best_author"
)

// Состояния ключа
const (
	StateNotComputed = "not_computed"
	StateComputed    = "computed"
)

// GlobalScopeKey — ключ единственного глобального скоупа.
const GlobalScopeKey = "global"

// Key — составной ключ итогов.
type Key struct {
	Period    string `json:"period"`
	PeriodKey string `json:"period_key"`
	ScopeType string `json:"scope_type"`
	ScopeKey  string `json:"scope_key"`
	Kind      string `json:"kind"`
}

// DayKey — ключ дневного топа фото.
func DayKey(scopeType, scopeKey, day string) Key {
	return Key{Period: PeriodDay, PeriodKey: day, ScopeType: scopeType, ScopeKey: scopeKey, Kind: KindTopPhotos}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", k.Period, k.PeriodKey, k.ScopeType, k.ScopeKey, k.Kind)
}

// Normalize проверяет ключ и дополняет значения по умолчанию.
func (k Key) Normalize() (Key, error) {
	k.ScopeKey = strings.TrimSpace(k.ScopeKey)
	if k.Kind == "" {
		k.Kind = KindTopPhotos
	}
	if k.Kind != KindTopPhotos && k.Kind != KindBestAuthor {
		return k, fmt.Errorf("%w: вид %q", common.ErrInvalidResultsKey, k.Kind)
	}
	if !scoring.KnownScope(k.ScopeType) {
		return k, fmt.Errorf("%w: скоуп %q", common.ErrInvalidResultsKey, k.ScopeType)
	}
	if k.ScopeType == scoring.ScopeGlobal {
		k.ScopeKey = GlobalScopeKey
	}
	if k.ScopeKey == "" {
		return k, fmt.Errorf("%w: пустой ключ скоупа", common.ErrInvalidResultsKey)
	}

	switch k.Period {
	case PeriodDay:
		if _, err := common.ParseDayKey(k.PeriodKey); err != nil {
			return k, fmt.Errorf("%w: %v", common.ErrInvalidResultsKey, err)
		}
	case PeriodWeek:
		if _, err := common.ParseWeekKey(k.PeriodKey); err != nil {
			return k, fmt.Errorf("%w: %v", common.ErrInvalidResultsKey, err)
		}
	case PeriodAllTime:
		k.PeriodKey = PeriodAllTime
	default:
		return k, fmt.Errorf("%w: период %q", common.ErrInvalidResultsKey, k.Period)
	}
	return k, nil
}

// window — диапазон day_key фото, попадающих в период, и опорный день
// для кулдауна победителей. Пустые from/to означают «всё время».
type window struct {
	From, To string
	Ref      string
}

// windowOf вычисляет окно нормализованного ключа. today нужен для all_time.
func windowOf(k Key, today string) window {
	switch k.Period {
	case PeriodDay:
		return window{From: k.PeriodKey, To: k.PeriodKey, Ref: k.PeriodKey}
	case PeriodWeek:
		monday, _ := common.ParseWeekKey(k.PeriodKey)
		from, to := common.WeekBounds(monday)
		return window{From: from, To: to, Ref: from}
	default:
		return window{Ref: today}
	}
}

// Status — состояние ключа итогов.
type Status struct {
	Key        Key        `json:"key"`
	State      string     `json:"state"`
	ComputedAt *time.Time `json:"computed_at,omitempty"`
	Version    int        `json:"version"`
	Items      int        `json:"items"`
}

// Row — агрегаты одного фото за окно.
type Row struct {
	PhotoID          int64
	UserID           int64
	FileID           string
	Title            string
	AuthorName       string
	AuthorUsername   string
	CreatedAt        time.Time
	RatingsCount     int
	UniqueRaters     int
	WeightedSum      float64
	WeightedCount    float64
	AvgRating        float64
	Comments         int
	PendingReports   int
	QualifiedInvites int
	LastWin          string // Последняя победа автора в скоупе до опорного дня, "" — не было
}

// Payload — снимок данных для отображения, чтение не обращается к живым таблицам.
type Payload struct {
	PhotoID        int64   `json:"photo_id"`
	FileID         string  `json:"file_id"`
	Title          string  `json:"title"`
	AvgRating      float64 `json:"avg_rating"`
	RatingsCount   int     `json:"ratings_count"`
	UniqueRaters   int     `json:"unique_raters"`
	Comments       int     `json:"comments_count"`
	AuthorName     string  `json:"author_name"`
	AuthorUsername string  `json:"author_username,omitempty"`
}

// Entry — место в итогах.
type Entry struct {
	Place   int     `json:"place"`
	PhotoID int64   `json:"photo_id"`
	UserID  int64   `json:"user_id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}
