package settings

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"glowshot.ru/rating-bot/internal/common"
)

const (
	kindInt   = "int"
	kindFloat = "float"
	kindBool  = "bool"
	kindClock = "clock"
)

// spec — одна настройка: тип, дефолт, диапазон и как положить значение в Settings.
type spec struct {
	key      string
	kind     string
	def      string
	min, max float64
	set      func(s *Settings, v float64)
	get      func(s *Settings) string
}

func intSpec(key string, def, min, max int, set func(*Settings, int), get func(*Settings) int) spec {
	return spec{
		key: key, kind: kindInt, def: strconv.Itoa(def), min: float64(min), max: float64(max),
		set: func(s *Settings, v float64) { set(s, int(v)) },
		get: func(s *Settings) string { return strconv.Itoa(get(s)) },
	}
}

func floatSpec(key string, def, min, max float64, set func(*Settings, float64), get func(*Settings) float64) spec {
	return spec{
		key: key, kind: kindFloat, def: strconv.FormatFloat(def, 'f', -1, 64), min: min, max: max,
		set: set,
		get: func(s *Settings) string { return strconv.FormatFloat(get(s), 'f', -1, 64) },
	}
}

func boolSpec(key string, def bool, set func(*Settings, bool), get func(*Settings) bool) spec {
	return spec{
		key: key, kind: kindBool, def: strconv.FormatBool(def),
		set: func(s *Settings, v float64) { set(s, v != 0) },
		get: func(s *Settings) string { return strconv.FormatBool(get(s)) },
	}
}

func clockSpec(key, def string, set func(*Settings, Clock), get func(*Settings) Clock) spec {
	return spec{
		key: key, kind: kindClock, def: def,
		set: func(s *Settings, v float64) { set(s, Clock(v)) },
		get: func(s *Settings) string { return get(s).String() },
	}
}

var specs = []spec{
	intSpec("credit_to_shows_normal", 2, 1, 100,
		func(s *Settings, v int) { s.CreditToShowsNormal = v }, func(s *Settings) int { return s.CreditToShowsNormal }),
	intSpec("credit_to_shows_happy", 4, 1, 100,
		func(s *Settings, v int) { s.CreditToShowsHappy = v }, func(s *Settings) int { return s.CreditToShowsHappy }),
	boolSpec("happy_hour_enabled", true,
		func(s *Settings, v bool) { s.HappyHourEnabled = v }, func(s *Settings) bool { return s.HappyHourEnabled }),
	clockSpec("happy_hour_start", "15:00",
		func(s *Settings, v Clock) { s.HappyHourStart = v }, func(s *Settings) Clock { return s.HappyHourStart }),
	clockSpec("happy_hour_end", "16:00",
		func(s *Settings, v Clock) { s.HappyHourEnd = v }, func(s *Settings) Clock { return s.HappyHourEnd }),
	floatSpec("tail_probability", 0.05, 0, 1,
		func(s *Settings, v float64) { s.TailProbability = v }, func(s *Settings) float64 { return s.TailProbability }),
	intSpec("min_votes_for_normal_feed", 5, 0, 1000,
		func(s *Settings, v int) { s.MinVotesForNormalFeed = v }, func(s *Settings) int { return s.MinVotesForNormalFeed }),
	intSpec("daily_author_vote_cap", 5, 0, 1000,
		func(s *Settings, v int) { s.DailyAuthorVoteCap = v }, func(s *Settings) int { return s.DailyAuthorVoteCap }),
	intSpec("feed_max_scan", 20, 1, 500,
		func(s *Settings, v int) { s.FeedMaxScan = v }, func(s *Settings) int { return s.FeedMaxScan }),
	intSpec("popular_min_ratings", 10, 1, 10000,
		func(s *Settings, v int) { s.PopularMinRatings = v }, func(s *Settings) int { return s.PopularMinRatings }),
	intSpec("low_ratings_max", 2, 1, 10000,
		func(s *Settings, v int) { s.LowRatingsMax = v }, func(s *Settings) int { return s.LowRatingsMax }),
	floatSpec("premium_boost_chance", 0.3, 0, 1,
		func(s *Settings, v float64) { s.PremiumBoostChance = v }, func(s *Settings) float64 { return s.PremiumBoostChance }),
	intSpec("rest_every_n", 10, 0, 1000,
		func(s *Settings, v int) { s.RestEveryN = v }, func(s *Settings) int { return s.RestEveryN }),
	floatSpec("link_rating_weight", 0.5, 0, 1,
		func(s *Settings, v float64) { s.LinkRatingWeight = v }, func(s *Settings) float64 { return s.LinkRatingWeight }),
	intSpec("bayes_prior_feed", 12, 1, 1000,
		func(s *Settings, v int) { s.BayesPriorFeed = v }, func(s *Settings) int { return s.BayesPriorFeed }),
	intSpec("bayes_prior_results", 20, 1, 1000,
		func(s *Settings, v int) { s.BayesPriorResults = v }, func(s *Settings) int { return s.BayesPriorResults }),
	floatSpec("global_mean_fallback", 7.0, 1, 10,
		func(s *Settings, v float64) { s.GlobalMeanFallback = v }, func(s *Settings) float64 { return s.GlobalMeanFallback }),
	intSpec("winner_cooldown_days", 1, 0, 365,
		func(s *Settings, v int) { s.WinnerCooldownDays = v }, func(s *Settings) int { return s.WinnerCooldownDays }),
	intSpec("min_qualified_invites", 0, 0, 1000,
		func(s *Settings, v int) { s.MinQualifiedInvites = v }, func(s *Settings) int { return s.MinQualifiedInvites }),
	intSpec("daily_credit_grant", 0, 0, 1000,
		func(s *Settings, v int) { s.DailyCreditGrant = v }, func(s *Settings) int { return s.DailyCreditGrant }),
	intSpec("daily_credit_grant_premium", 0, 0, 1000,
		func(s *Settings, v int) { s.DailyCreditGrantPremium = v }, func(s *Settings) int { return s.DailyCreditGrantPremium }),
}

var specsByKey = func() map[string]spec {
	m := make(map[string]spec, len(specs))
	for _, sp := range specs {
		m[sp.key] = sp
	}
	return m
}()

// parse приводит строку к числу для типа настройки (bool → 0/1, clock → минуты).
func (sp spec) parse(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	switch sp.kind {
	case kindInt:
		if v, err := strconv.Atoi(raw); err == nil {
			return float64(v), nil
		}
		// "3.0" из JSON-панели тоже принимаем, если число целое
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
			return 0, fmt.Errorf("ожидается целое число")
		}
		return f, nil
	case kindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("ожидается число")
		}
		return f, nil
	case kindBool:
		switch strings.ToLower(raw) {
		case "1", "true", "yes", "on", "да":
			return 1, nil
		case "0", "false", "no", "off", "нет":
			return 0, nil
		}
		return 0, fmt.Errorf("ожидается true/false")
	case kindClock:
		c, err := ParseClock(raw)
		if err != nil {
			return 0, err
		}
		return float64(c), nil
	}
	return 0, fmt.Errorf("неизвестный тип %q", sp.kind)
}

// clamp зажимает число в диапазон настройки. Для bool/clock диапазона нет.
func (sp spec) clamp(v float64) (float64, bool) {
	if sp.kind != kindInt && sp.kind != kindFloat {
		return v, false
	}
	if v < sp.min {
		return sp.min, true
	}
	if v > sp.max {
		return sp.max, true
	}
	return v, false
}

// Defaults возвращает настройки по умолчанию.
func Defaults() Settings {
	var s Settings
	for _, sp := range specs {
		v, err := sp.parse(sp.def)
		if err != nil {
			panic(fmt.Sprintf("settings: битый дефолт %s: %v", sp.key, err))
		}
		sp.set(&s, v)
	}
	return s
}

// Resolve накладывает переопределения на дефолты. Неизвестные ключи
// игнорируются, битые значения заменяются дефолтом, выход за диапазон зажимается.
func Resolve(overrides map[string]string) (Settings, []Issue) {
	s := Defaults()
	var issues []Issue

	for _, sp := range specs {
		raw, ok := overrides[sp.key]
		if !ok {
			continue
		}
		v, err := sp.parse(raw)
		if err != nil {
			issues = append(issues, Issue{Key: sp.key, Raw: raw, Reason: err.Error()})
			continue
		}
		if clamped, changed := sp.clamp(v); changed {
			issues = append(issues, Issue{Key: sp.key, Raw: raw, Reason: "вне диапазона, зажато"})
			v = clamped
		}
		sp.set(&s, v)
	}

	// Корзины ротации должны идти по возрастанию: low < popular
	if s.LowRatingsMax >= s.PopularMinRatings {
		d := Defaults()
		issues = append(issues, Issue{
			Key:    "low_ratings_max",
			Raw:    strconv.Itoa(s.LowRatingsMax),
			Reason: "должен быть меньше popular_min_ratings, взяты дефолты",
		})
		s.LowRatingsMax, s.PopularMinRatings = d.LowRatingsMax, d.PopularMinRatings
	}
	return s, issues
}

// Validate проверяет значение для записи из админки: ключ известен,
// значение парсится и лежит в диапазоне. Возвращает нормализованную строку.
func Validate(key, raw string) (string, error) {
	sp, ok := specsByKey[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", common.ErrUnknownSetting, key)
	}
	v, err := sp.parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", common.ErrInvalidSetting, key, err)
	}
	if _, changed := sp.clamp(v); changed {
		return "", fmt.Errorf("%w: %s вне диапазона [%g, %g]", common.ErrInvalidSetting, key, sp.min, sp.max)
	}
	var tmp Settings
	sp.set(&tmp, v)
	return sp.get(&tmp), nil
}

// Describe возвращает все настройки с дефолтами, переопределениями и итогом.
func Describe(overrides map[string]string) []Field {
	eff, _ := Resolve(overrides)
	out := make([]Field, 0, len(specs))
	for _, sp := range specs {
		f := Field{
			Key:       sp.key,
			Kind:      sp.kind,
			Default:   sp.def,
			Override:  overrides[sp.key],
			Effective: sp.get(&eff),
		}
		if sp.kind == kindInt || sp.kind == kindFloat {
			f.Min = strconv.FormatFloat(sp.min, 'f', -1, 64)
			f.Max = strconv.FormatFloat(sp.max, 'f', -1, 64)
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
