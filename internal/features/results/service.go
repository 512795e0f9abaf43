// Package results — service.go: пересчёт ключа итогов одной транзакцией
// под блокировкой строки статуса и чтение готовых мест.
package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/db/postgres"
	"glowshot.ru/rating-bot/internal/features/scoring"
	"glowshot.ru/rating-bot/internal/features/settings"
	"glowshot.ru/rating-bot/internal/metrics"
)

// SettingsSource отдаёт действующие настройки.
type SettingsSource interface {
	GetEffectiveSettings(ctx context.Context) settings.Settings
}

// MeanSource — глобальное среднее для байесовской оценки.
type MeanSource interface {
	GetGlobalMean(ctx context.Context) (float64, int64, error)
}

// Service — движок итогов.
type Service struct {
	db       *pgxpool.Pool
	repo     *Repository
	settings SettingsSource
	mean     MeanSource
	limit    int
	now      func() time.Time
}

// NewService создаёт движок итогов. limit — число мест по умолчанию.
func NewService(db *pgxpool.Pool, repo *Repository, src SettingsSource, mean MeanSource, limit int) *Service {
	if limit <= 0 {
		limit = 10
	}
	return &Service{
		db:       db,
		repo:     repo,
		settings: src,
		mean:     mean,
		limit:    limit,
		now:      common.GetMoscowTime,
	}
}

// RecalculateTop пересчитывает ключ и возвращает число мест.
// Посчитанный ключ без force не трогается: возвращается сохранённое число мест.
func (s *Service) RecalculateTop(ctx context.Context, key Key, limit int, force bool) (int, error) {
	key, err := key.Normalize()
	if err != nil {
		return 0, err
	}
	if limit <= 0 {
		limit = s.limit
	}

	started := time.Now()
	cfg := s.settings.GetEffectiveSettings(ctx)
	mean, _, err := s.mean.GetGlobalMean(ctx)
	if err != nil {
		metrics.RecordRecalc(key.Period, "error", time.Since(started))
		return 0, fmt.Errorf("ошибка получения глобального среднего: %w", err)
	}

	var (
		items   int
		skipped bool
	)
	err = postgres.InTx(ctx, s.db, func(tx pgx.Tx) error {
		st, err := s.repo.LockStatus(ctx, tx, key)
		if err != nil {
			return err
		}
		if st.State == StateComputed && !force {
			items, skipped = st.Items, true
			return nil
		}

		entries, err := s.compute(ctx, tx, key, cfg, mean, limit)
		if err != nil {
			return err
		}
		if err := s.repo.ReplaceEntries(ctx, tx, key, entries); err != nil {
			return err
		}
		if key.Kind == KindTopPhotos {
			w := windowOf(key, common.DayKey(s.now()))
			if len(entries) > 0 {
				if err := s.repo.RecordWin(ctx, tx, key, entries[0].UserID, entries[0].PhotoID, w.Ref); err != nil {
					return err
				}
			} else if err := s.repo.ClearWin(ctx, tx, key); err != nil {
				return err
			}
		}
		items = len(entries)
		return s.repo.MarkComputed(ctx, tx, key, items)
	})
	if err != nil {
		metrics.RecordRecalc(key.Period, "error", time.Since(started))
		return 0, err
	}

	outcome := "computed"
	if skipped {
		outcome = "skipped"
	}
	metrics.RecordRecalc(key.Period, outcome, time.Since(started))
	log.WithFields(log.Fields{
		"key":     key.String(),
		"items":   items,
		"force":   force,
		"skipped": skipped,
	}).Debug("Итоги пересчитаны")
	return items, nil
}

// compute собирает места ключа внутри транзакции пересчёта.
func (s *Service) compute(ctx context.Context, tx pgx.Tx, key Key, cfg settings.Settings, mean float64, limit int) ([]Entry, error) {
	rules := scoring.RulesForScope(key.ScopeType)
	if rules.MinPopulation > 0 {
		authors, err := s.repo.ActiveAuthors(ctx, tx, key.ScopeType, key.ScopeKey)
		if err != nil {
			return nil, err
		}
		if authors < rules.MinPopulation {
			log.WithFields(log.Fields{
				"key":     key.String(),
				"authors": authors,
				"min":     rules.MinPopulation,
			}).Debug("Мало авторов в скоупе, итоги пустые")
			return nil, nil
		}
	}

	w := windowOf(key, common.DayKey(s.now()))
	rows, err := s.repo.Rows(ctx, tx, key, w, cfg.LinkRatingWeight)
	if err != nil {
		return nil, err
	}

	entries := rank(rows, rankParams{
		Rules:        rules,
		GlobalMean:   mean,
		Prior:        cfg.BayesPriorResults,
		MinInvites:   cfg.MinQualifiedInvites,
		Global:       key.ScopeType == scoring.ScopeGlobal,
		CooldownDays: cfg.WinnerCooldownDays,
		Ref:          w.Ref,
		Limit:        limit,
	})
	if key.Kind == KindBestAuthor {
		entries = bestAuthor(entries)
	}
	return entries, nil
}

// RecalculateDay пересчитывает дневные итоги: глобальные, каждого города,
// страны и тега, где в этот день публиковали фото. Ошибки ключей собираются,
// пересчёт остальных продолжается.
func (s *Service) RecalculateDay(ctx context.Context, day string, force bool) (int, error) {
	if _, err := common.ParseDayKey(day); err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidResultsKey, err)
	}
	cities, countries, tags, err := s.repo.DayScopes(ctx, day)
	if err != nil {
		return 0, err
	}

	keys := []Key{DayKey(scoring.ScopeGlobal, GlobalScopeKey, day)}
	for _, c := range cities {
		keys = append(keys, DayKey(scoring.ScopeCity, c, day))
	}
	for _, c := range countries {
		keys = append(keys, DayKey(scoring.ScopeCountry, c, day))
	}
	for _, t := range tags {
		keys = append(keys, DayKey(scoring.ScopeTagEvent, t, day))
	}

	var (
		done int
		errs []error
	)
	for _, k := range keys {
		for _, kind := range []string{KindTopPhotos, KindBestAuthor} {
			if err := ctx.Err(); err != nil {
				return done, err
			}
			k.Kind = kind
			if _, err := s.RecalculateTop(ctx, k, 0, force); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", k, err))
				continue
			}
			done++
		}
	}

	log.WithFields(log.Fields{
		"day":    day,
		"keys":   done,
		"errors": len(errs),
	}).Info("Дневные итоги пересчитаны")
	return done, errors.Join(errs...)
}

// GetDailyResultsCache возвращает посчитанные дневные места скоупа.
// Непосчитанный ключ даёт пустой список: чтение никогда не пересчитывает.
func (s *Service) GetDailyResultsCache(ctx context.Context, scopeType, scopeKey, day string) ([]Entry, error) {
	key, err := DayKey(scopeType, scopeKey, day).Normalize()
	if err != nil {
		return nil, err
	}
	return s.Entries(ctx, key)
}

// Entries возвращает места ключа, если он посчитан.
func (s *Service) Entries(ctx context.Context, key Key) ([]Entry, error) {
	key, err := key.Normalize()
	if err != nil {
		return nil, err
	}
	st, err := s.repo.GetStatus(ctx, key)
	if err != nil {
		return nil, err
	}
	if st.State != StateComputed {
		return []Entry{}, nil
	}
	entries, err := s.repo.Entries(ctx, key)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Status возвращает состояние ключа.
func (s *Service) Status(ctx context.Context, key Key) (*Status, error) {
	key, err := key.Normalize()
	if err != nil {
		return nil, err
	}
	return s.repo.GetStatus(ctx, key)
}

// Invalidate сбрасывает ключ в «не посчитан». Места остаются до следующего
// пересчёта, но не отдаются читателям.
func (s *Service) Invalidate(ctx context.Context, key Key) (bool, error) {
	key, err := key.Normalize()
	if err != nil {
		return false, err
	}
	ok, err := s.repo.Invalidate(ctx, key)
	if err != nil {
		return false, err
	}
	log.WithFields(log.Fields{
		"key":   key.String(),
		"found": ok,
	}).Info("Итоги сброшены")
	return ok, nil
}
