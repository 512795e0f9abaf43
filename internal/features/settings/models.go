// Package settings — типизированные настройки экономики с переопределениями из БД.
// Каждое поле приводится к типу и зажимается в документированный диапазон,
// битые и отсутствующие значения заменяются значением по умолчанию.
package settings

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Settings — действующие настройки экономики, ленты и итогов.
type Settings struct {
	CreditToShowsNormal int  // Курс кредит → показы вне happy hour
	CreditToShowsHappy  int  // Курс в happy hour
	HappyHourEnabled    bool // Выключатель happy hour
	HappyHourStart      Clock
	HappyHourEnd        Clock // Окно [start, end), может переходить через полночь

	TailProbability       float64 // Вероятность показа «хвоста» без оплаты
	MinVotesForNormalFeed int     // Фото с меньшим числом оценок попадают в хвост
	DailyAuthorVoteCap    int     // Лимит оценок одному автору в день (0 — без лимита)
	FeedMaxScan           int     // Сколько кандидатов перебираем за один запрос

	// Старая ротация по корзинам
	PopularMinRatings  int
	LowRatingsMax      int
	PremiumBoostChance float64
	RestEveryN         int

	LinkRatingWeight   float64 // Вес оценок, пришедших по внешней ссылке
	BayesPriorFeed     int     // Вес априорного среднего для ленты и профиля
	BayesPriorResults  int     // Вес априорного среднего для итогов
	GlobalMeanFallback float64 // Среднее на холодном старте

	WinnerCooldownDays  int // Сколько дней победитель не может выиграть снова
	MinQualifiedInvites int // Минимум приглашений для глобальных итогов

	DailyCreditGrant        int // Ежедневное начисление всем активным
	DailyCreditGrantPremium int // Ежедневное начисление премиум-пользователям
}

// IsHappyHour сообщает, попадает ли t в окно happy hour.
// Окно [start, end) может переходить через полночь; start == end — пустое окно.
func (s Settings) IsHappyHour(t time.Time) bool {
	if !s.HappyHourEnabled {
		return false
	}
	return s.HappyHourStart.Window(s.HappyHourEnd, t)
}

// ShowsPerCredit возвращает курс конвертации в момент t.
func (s Settings) ShowsPerCredit(t time.Time) int {
	if s.IsHappyHour(t) {
		return s.CreditToShowsHappy
	}
	return s.CreditToShowsNormal
}

// Clock — время суток в минутах от полуночи.
type Clock int

// ParseClock разбирает "HH:MM".
func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("ожидается HH:MM, получено %q", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("некорректный час в %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("некорректные минуты в %q", raw)
	}
	return Clock(h*60 + m), nil
}

// ClockOf возвращает время суток момента t (в его часовом поясе).
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Window проверяет попадание t в [c, end) с переходом через полночь.
func (c Clock) Window(end Clock, t time.Time) bool {
	now := ClockOf(t)
	if c <= end {
		return c <= now && now < end
	}
	return now >= c || now < end
}

// Field описывает настройку для админки.
type Field struct {
	Key       string `json:"key"`
	Kind      string `json:"kind"`
	Default   string `json:"default"`
	Min       string `json:"min,omitempty"`
	Max       string `json:"max,omitempty"`
	Override  string `json:"override,omitempty"`
	Effective string `json:"effective"`
}

// Issue — битое переопределение, заменённое дефолтом или зажатое в диапазон.
type Issue struct {
	Key    string
	Raw    string
	Reason string
}
