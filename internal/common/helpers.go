// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, работа с московским временем,
// ключи дней и недель для итогов.
package common

import (
	"fmt"
	"math"
	"time"
)

// DayKeyLayout — формат ключа дня (когорта публикации, ключ дневных итогов).
const DayKeyLayout = "2006-01-02"

var moscow = loadMoscow()

func loadMoscow() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		// Если не удалось загрузить — используем UTC+3 вручную
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// Moscow возвращает часовой пояс Europe/Moscow.
func Moscow() *time.Location {
	return moscow
}

// GetMoscowTime возвращает текущее время в часовом поясе Москвы.
func GetMoscowTime() time.Time {
	return time.Now().In(moscow)
}

// GetMoscowDate возвращает только дату (без времени) в часовом поясе Москвы.
func GetMoscowDate() time.Time {
	return TruncateDay(GetMoscowTime())
}

// TruncateDay отбрасывает время, оставляя полночь по Москве.
func TruncateDay(t time.Time) time.Time {
	t = t.In(moscow)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, moscow)
}

// DayKey возвращает ключ дня вида 2026-10-16 по московскому времени.
func DayKey(t time.Time) string {
	return t.In(moscow).Format(DayKeyLayout)
}

// ParseDayKey разбирает ключ дня в полночь по Москве.
func ParseDayKey(key string) (time.Time, error) {
	d, err := time.ParseInLocation(DayKeyLayout, key, moscow)
	if err != nil {
		return time.Time{}, fmt.Errorf("некорректный ключ дня %q: %w", key, err)
	}
	return d, nil
}

// WeekKey возвращает ISO-неделю вида 2026-W42.
func WeekKey(t time.Time) string {
	year, week := t.In(moscow).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ParseWeekKey возвращает понедельник ISO-недели вида 2026-W42.
func ParseWeekKey(key string) (time.Time, error) {
	var year, week int
	if _, err := fmt.Sscanf(key, "%d-W%d", &year, &week); err != nil || week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("некорректный ключ недели %q", key)
	}
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, moscow)
	monday := jan4.AddDate(0, 0, -((int(jan4.Weekday())+6)%7)+(week-1)*7)
	if WeekKey(monday) != key {
		return time.Time{}, fmt.Errorf("некорректный ключ недели %q", key)
	}
	return monday, nil
}

// WeekBounds возвращает ключи первого (понедельник) и последнего (воскресенье) дня
// ISO-недели, в которую попадает день t.
func WeekBounds(t time.Time) (string, string) {
	d := TruncateDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDate(0, 0, -offset)
	return DayKey(start), DayKey(start.AddDate(0, 0, 6))
}

// FormatDateTime форматирует время в "02.01.2006 15:04" по Москве.
func FormatDateTime(t time.Time) string {
	return t.In(moscow).Format("02.01.2006 15:04")
}

// FormatScore округляет балл до двух знаков для отображения.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.2f", math.Round(score*100)/100)
}
