// Package globalmean — кэш взвешенного среднего всех оценок.
// Среднее служит априорным значением для байесовской оценки; на холодном
// старте (ноль оценок) отдаётся настраиваемое нейтральное значение.
package globalmean

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Snapshot — одно вычисленное значение.
type Snapshot struct {
	Mean       float64   `json:"mean"`
	Count      int64     `json:"count"`
	ComputedAt time.Time `json:"computed_at"`
}

// Source считает среднее по всем оценкам с весом linkWeight для оценок по ссылке
// и сохраняет результат для наблюдения.
type Source interface {
	WeightedMean(ctx context.Context, linkWeight float64) (mean float64, count int64, err error)
	Save(ctx context.Context, snap Snapshot) error
}

// Params — настраиваемые на лету параметры (из настроек экономики).
type Params func(ctx context.Context) (linkWeight, fallback float64)

// Cache хранит одно значение с меткой времени. Параллельное обновление
// допустимо: побеждает последний писатель.
type Cache struct {
	src    Source
	params Params
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	snap  Snapshot
	valid bool
}

// NewCache создаёт кэш с заданным TTL.
func NewCache(src Source, params Params, ttl time.Duration) *Cache {
	return &Cache{src: src, params: params, ttl: ttl, now: time.Now}
}

// GetGlobalMean возвращает (среднее, число оценок). Если свежего значения нет —
// пересчитывает. Ошибка возвращается только при недоступной БД и пустом кэше.
func (c *Cache) GetGlobalMean(ctx context.Context) (float64, int64, error) {
	c.mu.RLock()
	if c.valid && c.now().Sub(c.snap.ComputedAt) < c.ttl {
		snap := c.snap
		c.mu.RUnlock()
		return snap.Mean, snap.Count, nil
	}
	stale, hadStale := c.snap, !c.snap.ComputedAt.IsZero()
	c.mu.RUnlock()

	linkWeight, fallback := c.params(ctx)
	mean, count, err := c.src.WeightedMean(ctx, linkWeight)
	if err != nil {
		if hadStale {
			log.WithError(err).Warn("Не удалось пересчитать глобальное среднее, отдаём устаревшее")
			return stale.Mean, stale.Count, nil
		}
		return 0, 0, err
	}
	if count <= 0 {
		mean = fallback
	}

	snap := Snapshot{Mean: mean, Count: count, ComputedAt: c.now()}
	c.mu.Lock()
	c.snap, c.valid = snap, true
	c.mu.Unlock()

	if err := c.src.Save(ctx, snap); err != nil {
		log.WithError(err).Debug("Не удалось сохранить глобальное среднее")
	}
	return snap.Mean, snap.Count, nil
}

// Invalidate помечает значение устаревшим; следующий вызов пересчитает.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
