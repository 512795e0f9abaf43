// Package common — pluralize.go содержит функции склонения русских
// числительных для кредитов, показов и оценок.
package common

import (
	"fmt"
	"math"
)

// pluralize выбирает форму слова по правилам русского языка.
//
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, ...)
//   - остальные → many (0, 5-20, 25-30, 100, ...)
func pluralize(n int64, one, few, many string) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeCredits возвращает форму слова «кредит» для числа n.
//
//	PluralizeCredits(1)  → "кредит"
//	PluralizeCredits(3)  → "кредита"
//	PluralizeCredits(11) → "кредитов"
func PluralizeCredits(n int64) string {
	return pluralize(n, "кредит", "кредита", "кредитов")
}

// PluralizeShows возвращает форму слова «показ».
func PluralizeShows(n int64) string {
	return pluralize(n, "показ", "показа", "показов")
}

// PluralizeVotes возвращает форму слова «оценка».
func PluralizeVotes(n int64) string {
	return pluralize(n, "оценка", "оценки", "оценок")
}

// FormatCredits форматирует баланс: FormatCredits(5) → "5 кредитов".
func FormatCredits(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizeCredits(n))
}

// FormatShows форматирует число показов: FormatShows(4) → "4 показа".
func FormatShows(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizeShows(n))
}

// FormatVotes форматирует число оценок.
func FormatVotes(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizeVotes(n))
}

// FormatCreditsAmount создаёт строку вида "+10 кредитов" или "-3 кредита".
func FormatCreditsAmount(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%d %s", amount, PluralizeCredits(amount))
	}
	return fmt.Sprintf("%d %s", amount, PluralizeCredits(amount))
}
