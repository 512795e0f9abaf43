// Package feed — выбор следующего фото для зрителя.
// Основной режим: платный проход по авторам с кредитами или показами,
// с небольшой вероятностью хвост малооценённых фото, затем любое доступное.
// Режим rotation сохраняет старую ротацию по корзинам.
package feed

import (
	"math/rand"
	"sync"
	"time"

	"glowshot.ru/rating-bot/internal/features/photos"
)

// Проходы ленты, которыми выдано фото
const (
	PassFunded   = "funded"   // Оплачено показом автора
	PassTail     = "tail"     // Хвост малооценённых без оплаты
	PassAny      = "any"      // Любое доступное
	PassRotation = "rotation" // Корзина старой ротации
	PassRest     = "rest"     // «Передышка»: фото без оценок
	PassEmpty    = "empty"    // Показать нечего
)

// Selection — выданное фото и проход, которым оно выбрано.
// Bucket заполняется только для ротации: корзина фото по числу оценок.
type Selection struct {
	Photo  *photos.Photo `json:"photo"`
	Pass   string        `json:"pass"`
	Bucket string        `json:"bucket,omitempty"`
}

// Bucket — корзина ротации по числу оценок.
type Bucket int

const (
	BucketFresh   Bucket = iota // 0 оценок
	BucketLow                   // 1..low
	BucketMid                   // low+1..popular-1
	BucketPopular               // popular и больше
)

func (b Bucket) String() string {
	switch b {
	case BucketFresh:
		return "fresh"
	case BucketLow:
		return "low"
	case BucketMid:
		return "mid"
	default:
		return "popular"
	}
}

// Bounds возвращает диапазон числа оценок корзины [min, max]; max < 0 — без верхней границы.
func (b Bucket) Bounds(low, popular int) (int, int) {
	switch b {
	case BucketFresh:
		return 0, 0
	case BucketLow:
		return 1, low
	case BucketMid:
		return low + 1, popular - 1
	default:
		return popular, -1
	}
}

// RandSource — источник случайности, подменяется в тестах.
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// lockedRand — общий генератор для конкурентных запросов.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand создаёт потокобезопасный генератор.
func NewRand() RandSource {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// candidate — кандидат на показ до попытки захвата.
type candidate struct {
	ID         int64
	UserID     int64
	VotesCount int
}

// filter описывает выборку кандидатов.
type filter struct {
	Rateable      bool  // ratings_enabled
	Funded        *bool // nil — без условия на баланс автора
	MinVotes      int
	MaxVotes      int // < 0 — без верхней границы
	PremiumOnly   bool
	ExcludeAuthor int64
	Limit         int
}
