// Package scoring — байесовская оценка фото и производные от неё:
// пороги допуска к итогам по скоупам, бонусы итогов и очки ранга автора.
// Всё здесь чистая математика без обращения к базе.
package scoring

import "math"

// Score возвращает сглаженное среднее (prior*mean + sum) / (prior + n).
// При n <= 0 оценка не определена: ok=false.
func Score(sum float64, n float64, globalMean float64, prior int) (score float64, ok bool) {
	if n <= 0 {
		return 0, false
	}
	if prior < 0 {
		prior = 0
	}
	w := float64(prior)
	return (w*globalMean + sum) / (w + n), true
}

// Коэффициенты бонусов итогов
const (
	VolumeBonus   = 0.02 // × log1p(число оценок)
	CommentBonus  = 0.01 // × log1p(число комментариев)
	ReportPenalty = 5.0  // За каждую открытую жалобу
)

// WithBonuses добавляет к базовой оценке бонусы за объём оценок и комментарии
// и вычитает штраф за открытые жалобы.
func WithBonuses(base float64, ratings, comments, pendingReports int) float64 {
	s := base
	s += VolumeBonus * math.Log1p(float64(max(ratings, 0)))
	s += CommentBonus * math.Log1p(float64(max(comments, 0)))
	s -= ReportPenalty * float64(max(pendingReports, 0))
	return s
}

// Rules — минимальные требования к фото для попадания в итоги скоупа.
type Rules struct {
	MinRatings      int
	MinUniqueRaters int
	MinPopulation   int // Сколько разных активных авторов нужно в скоупе
}

// Типы скоупов
const (
	ScopeGlobal   = "global"
	ScopeCity     = "city"
	ScopeCountry  = "country"
	ScopeTagEvent = "tag_event"
)

var rules = map[string]Rules{
	ScopeGlobal:   {MinRatings: 5, MinUniqueRaters: 4},
	ScopeCity:     {MinRatings: 10, MinUniqueRaters: 6, MinPopulation: 5},
	ScopeCountry:  {MinRatings: 25, MinUniqueRaters: 12, MinPopulation: 100},
	ScopeTagEvent: {MinRatings: 20, MinUniqueRaters: 10},
}

// RulesForScope возвращает пороги скоупа. Для неизвестного — глобальные.
func RulesForScope(scopeType string) Rules {
	if r, ok := rules[scopeType]; ok {
		return r
	}
	return rules[ScopeGlobal]
}

// KnownScope сообщает, поддерживается ли тип скоупа.
func KnownScope(scopeType string) bool {
	_, ok := rules[scopeType]
	return ok
}
