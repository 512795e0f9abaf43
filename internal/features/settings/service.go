// Package settings — service.go: кэшированный резолвер действующих настроек.
package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
)

// Store — хранилище переопределений.
type Store interface {
	List(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Service отдаёт действующие настройки и меняет переопределения.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	cached   Settings
	cachedAt time.Time
	loaded   bool
}

// NewService создаёт резолвер; ttl — сколько держать настройки в памяти.
func NewService(store Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl, now: time.Now, cached: Defaults()}
}

// GetEffectiveSettings возвращает действующие настройки. Ошибок не бывает:
// при недоступной БД отдаются последние известные настройки (или дефолты).
func (s *Service) GetEffectiveSettings(ctx context.Context) Settings {
	s.mu.Lock()
	if s.loaded && s.now().Sub(s.cachedAt) < s.ttl {
		cur := s.cached
		s.mu.Unlock()
		return cur
	}
	s.mu.Unlock()

	overrides, err := s.store.List(ctx)
	if err != nil {
		log.WithError(err).Warn("Не удалось прочитать настройки экономики, используем последние известные")
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cached
	}

	eff, issues := Resolve(overrides)
	for _, is := range issues {
		log.WithFields(log.Fields{
			"key":    is.Key,
			"raw":    is.Raw,
			"reason": is.Reason,
		}).Warn("Некорректная настройка экономики")
	}

	s.mu.Lock()
	s.cached, s.cachedAt, s.loaded = eff, s.now(), true
	s.mu.Unlock()
	return eff
}

// Set проверяет и сохраняет переопределение.
func (s *Service) Set(ctx context.Context, key, raw string) (string, error) {
	value, err := Validate(key, raw)
	if err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, key, value); err != nil {
		return "", err
	}
	s.Invalidate()
	log.WithFields(log.Fields{"key": key, "value": value}).Info("Настройка экономики изменена")
	return value, nil
}

// Reset удаляет переопределение.
func (s *Service) Reset(ctx context.Context, key string) error {
	if _, ok := specsByKey[key]; !ok {
		return fmt.Errorf("%w: %s", common.ErrUnknownSetting, key)
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	s.Invalidate()
	log.WithField("key", key).Info("Настройка экономики сброшена")
	return nil
}

// List описывает все настройки для админки.
func (s *Service) List(ctx context.Context) ([]Field, error) {
	overrides, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return Describe(overrides), nil
}

// Invalidate сбрасывает кэш, следующий вызов перечитает БД.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}
