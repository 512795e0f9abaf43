package economy

// Чистая арифметика счёта. Вызывается только над строкой, заблокированной
// FOR UPDATE, поэтому гонок между чтением и записью нет.

// rollDay обнуляет дневные счётчики при смене дня.
func (a *Account) rollDay(dayKey string) {
	if a.CountersDay == dayKey {
		return
	}
	a.CountersDay = dayKey
	a.VotesToday = 0
	a.HappyVotesToday = 0
	a.ImpressionsToday = 0
}

// addVoteCredit начисляет кредиты за оценку и двигает дневные счётчики.
func (a *Account) addVoteCredit(delta int64, dayKey string, happy bool) {
	a.rollDay(dayKey)
	a.Credits += delta
	a.TotalCreditsEarned += delta
	a.VotesToday++
	if happy {
		a.HappyVotesToday++
	}
}

// consume — конвертация и списание одного показа.
// Если показов нет, а кредиты есть — один кредит превращается в multiplier показов.
// Затем, если показы есть, списывается один. converted — была ли конвертация,
// ok — списан ли показ. На (0, 0) ничего не меняется.
func (a *Account) consume(multiplier int, dayKey string) (converted, ok bool) {
	if multiplier < 1 {
		multiplier = 1
	}
	if a.ShowTokens == 0 && a.Credits > 0 {
		a.Credits--
		a.ShowTokens += int64(multiplier)
		converted = true
	}
	if a.ShowTokens <= 0 {
		return converted, false
	}
	a.rollDay(dayKey)
	a.ShowTokens--
	a.TotalTokensSpent++
	a.ImpressionsToday++
	return converted, true
}

// adjustCredits меняет кредиты на delta, не опуская ниже нуля.
// Возвращает фактически применённое изменение.
func (a *Account) adjustCredits(delta int64) int64 {
	next := a.Credits + delta
	if next < 0 {
		next = 0
	}
	applied := next - a.Credits
	a.Credits = next
	if applied > 0 {
		a.TotalCreditsEarned += applied
	}
	return applied
}
