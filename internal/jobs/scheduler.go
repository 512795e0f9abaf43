// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: итоги за вчера и текущий день,
// ежедневный бонус кредитов, архивация фото и чистка счётчиков лимита.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/config"
	"glowshot.ru/rating-bot/internal/features/results"
	"glowshot.ru/rating-bot/internal/features/scoring"
	"glowshot.ru/rating-bot/internal/metrics"
)

// Results — пересчёт итогов.
type Results interface {
	RecalculateDay(ctx context.Context, day string, force bool) (int, error)
	RecalculateTop(ctx context.Context, key results.Key, limit int, force bool) (int, error)
}

// Grants — ежедневный бонус кредитов.
type Grants interface {
	GrantDailyCredits(ctx context.Context, day string) (int64, error)
}

// Archiver переводит истёкшие фото в архив.
type Archiver interface {
	ArchiveExpired(ctx context.Context) (int64, error)
}

// PurgeFunc удаляет счётчики лимита на автора старше дня before.
type PurgeFunc func(ctx context.Context, before string) (int64, error)

// throttleRetentionDays — сколько дней храним счётчики лимита на автора.
const throttleRetentionDays = 7

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	results  Results
	grants   Grants
	archiver Archiver
	purge    PurgeFunc
	now      func() time.Time
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
func NewScheduler(cfg *config.Config, res Results, grants Grants, archiver Archiver, purge PurgeFunc) *Scheduler {
	c := cron.New(cron.WithLocation(common.Moscow()))

	return &Scheduler{
		cron:     c,
		cfg:      cfg,
		results:  res,
		grants:   grants,
		archiver: archiver,
		purge:    purge,
		now:      common.GetMoscowTime,
	}
}

// Start регистрирует задачи и запускает cron.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"results_yesterday", s.cfg.JobsResultsSpec, s.closeYesterday},
		{"results_intraday", s.cfg.JobsIntradayResults, s.refreshToday},
		{"daily_grant", s.cfg.JobsDailyGrantSpec, s.dailyGrant},
		{"archive_photos", s.cfg.JobsArchiveSpec, s.archive},
		{"throttle_purge", s.cfg.JobsResultsSpec, s.purgeThrottle},
	}
	for _, j := range jobs {
		if j.spec == "" {
			log.WithField("job", j.name).Info("[CRON] Задача отключена (пустое расписание)")
			continue
		}
		name, run := j.name, j.run
		if _, err := s.cron.AddFunc(j.spec, func() { s.runJob(ctx, name, run) }); err != nil {
			return fmt.Errorf("некорректное расписание %s (%q): %w", name, j.spec, err)
		}
	}

	s.cron.Start()
	log.Info("Планировщик задач запущен (Europe/Moscow)")
	return nil
}

// Stop останавливает планировщик и ждёт выполняющиеся задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) runJob(ctx context.Context, name string, run func(context.Context) error) {
	started := time.Now()
	logger := log.WithField("job", name)
	logger.Debug("[CRON] Запуск")

	err := run(ctx)
	metrics.RecordJob(name, err == nil)
	if err != nil {
		logger.WithError(err).Error("[CRON] Ошибка задачи")
		return
	}
	logger.WithField("took", time.Since(started).Round(time.Millisecond)).Info("[CRON] Задача выполнена")
}

// closeYesterday подводит окончательные итоги вчерашнего дня. Промежуточные
// пересчёты уже пометили ключи посчитанными, поэтому закрытие всегда
// пересчитывает их заново: в итог и в победы попадают все оценки дня.
// По понедельникам так же закрываем прошлую неделю и зачёт за всё время.
func (s *Scheduler) closeYesterday(ctx context.Context) error {
	now := s.now()
	yesterday := common.DayKey(now.AddDate(0, 0, -1))
	n, err := s.results.RecalculateDay(ctx, yesterday, true)
	log.WithFields(log.Fields{"day": yesterday, "keys": n}).Info("[CRON] Итоги вчерашнего дня")
	if err != nil {
		return err
	}

	if now.Weekday() != time.Monday {
		return nil
	}
	lastWeek := common.WeekKey(now.AddDate(0, 0, -7))
	keys := []results.Key{
		{Period: results.PeriodWeek, PeriodKey: lastWeek, ScopeType: scoring.ScopeGlobal, Kind: results.KindTopPhotos},
		{Period: results.PeriodWeek, PeriodKey: lastWeek, ScopeType: scoring.ScopeGlobal, Kind: results.KindBestAuthor},
		{Period: results.PeriodAllTime, ScopeType: scoring.ScopeGlobal, Kind: results.KindTopPhotos},
		{Period: results.PeriodAllTime, ScopeType: scoring.ScopeGlobal, Kind: results.KindBestAuthor},
	}
	for _, k := range keys {
		if _, err := s.results.RecalculateTop(ctx, k, 0, true); err != nil {
			return fmt.Errorf("итоги %s: %w", k, err)
		}
	}
	return nil
}

// refreshToday обновляет предварительные итоги текущего дня.
func (s *Scheduler) refreshToday(ctx context.Context) error {
	_, err := s.results.RecalculateDay(ctx, common.DayKey(s.now()), true)
	return err
}

func (s *Scheduler) dailyGrant(ctx context.Context) error {
	day := common.DayKey(s.now())
	n, err := s.grants.GrantDailyCredits(ctx, day)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"day": day, "accounts": n}).Info("[CRON] Ежедневный бонус начислен")
	return nil
}

func (s *Scheduler) archive(ctx context.Context) error {
	_, err := s.archiver.ArchiveExpired(ctx)
	return err
}

func (s *Scheduler) purgeThrottle(ctx context.Context) error {
	before := common.DayKey(s.now().AddDate(0, 0, -throttleRetentionDays))
	n, err := s.purge(ctx, before)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"before": before, "rows": n}).Debug("[CRON] Счётчики лимита очищены")
	return nil
}
