package scoring

import "math"

// Rank — ступень автора по очкам.
type Rank struct {
	Code  string `json:"code"`
	Emoji string `json:"emoji"`
	Title string `json:"title"`
	Min   int    `json:"min_points"`
}

// Ступени по возрастанию порога
var Ranks = []Rank{
	{Code: "beginner", Emoji: "🟢", Title: "Начинающий", Min: 0},
	{Code: "amateur", Emoji: "🔵", Title: "Любитель", Min: 120},
	{Code: "expert", Emoji: "🟣", Title: "Эксперт", Min: 260},
}

// RankPoints — вклад одного фото: score × log1p(n). Отрицательные оценки дают 0.
func RankPoints(score float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Max(0, score) * math.Log1p(float64(n))
}

// RankFromPoints выбирает старшую ступень, порог которой не превышает points.
func RankFromPoints(points int) Rank {
	current := Ranks[0]
	for _, r := range Ranks {
		if points < r.Min {
			break
		}
		current = r
	}
	return current
}

// Label — «🔵 Любитель».
func (r Rank) Label() string {
	return r.Emoji + " " + r.Title
}
