// Package economy — service.go: операции леджера поверх репозитория.
// Начисление за оценку и списание показа выполняются внутри транзакции
// вызывающего (запись оценки, выдача ленты), админские операции — в своей.
package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/db/postgres"
	"glowshot.ru/rating-bot/internal/features/settings"
	"glowshot.ru/rating-bot/internal/metrics"
)

// SettingsSource отдаёт действующие настройки экономики.
type SettingsSource interface {
	GetEffectiveSettings(ctx context.Context) settings.Settings
}

// Service — кредитный леджер.
type Service struct {
	db       *pgxpool.Pool
	repo     *Repository
	settings SettingsSource
	now      func() time.Time
}

// NewService создаёт леджер.
func NewService(db *pgxpool.Pool, repo *Repository, src SettingsSource) *Service {
	return &Service{db: db, repo: repo, settings: src, now: common.GetMoscowTime}
}

// AddCreditsOnVote начисляет delta кредитов голосующему и отмечает его активность.
func (s *Service) AddCreditsOnVote(ctx context.Context, tx postgres.DBTX, voterID, delta int64) error {
	if delta <= 0 {
		return nil
	}
	now := s.now()
	happy := s.settings.GetEffectiveSettings(ctx).IsHappyHour(now)

	acc, err := s.repo.LockOrCreate(ctx, tx, voterID)
	if err != nil {
		return err
	}
	acc.addVoteCredit(delta, common.DayKey(now), happy)
	if err := s.repo.Save(ctx, tx, acc, true); err != nil {
		return err
	}
	return s.repo.AppendLog(ctx, tx, voterID, KindVoteReward, delta, 0, "")
}

// ConvertAndConsumeOneImpression списывает один показ у автора, при нехватке
// показов конвертируя один кредит по текущему курсу. Возвращает false, если
// у автора нет ни кредитов, ни показов: в этом случае ничего не меняется.
func (s *Service) ConvertAndConsumeOneImpression(ctx context.Context, tx postgres.DBTX, authorID int64) (bool, error) {
	acc, err := s.repo.Lock(ctx, tx, authorID)
	if err != nil {
		return false, err
	}
	if acc == nil || !acc.Funded() {
		return false, nil
	}

	now := s.now()
	mult := s.settings.GetEffectiveSettings(ctx).ShowsPerCredit(now)
	converted, ok := acc.consume(mult, common.DayKey(now))
	if !ok {
		return false, nil
	}
	if err := s.repo.Save(ctx, tx, acc, false); err != nil {
		return false, err
	}
	if converted {
		if err := s.repo.AppendLog(ctx, tx, authorID, KindConvert, -1, int64(mult), fmt.Sprintf("x%d", mult)); err != nil {
			return false, err
		}
		metrics.RecordLedger(KindConvert, 1)
	}
	if err := s.repo.AppendLog(ctx, tx, authorID, KindImpression, 0, -1, ""); err != nil {
		return false, err
	}
	return true, nil
}

// GetAccount возвращает текущий счёт пользователя.
func (s *Service) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	return s.repo.Get(ctx, userID)
}

// History возвращает последние движения по счёту.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.History(ctx, userID, limit)
}

// AdminAddCredits выдаёт пользователю кредиты.
func (s *Service) AdminAddCredits(ctx context.Context, adminID, userID, amount int64) (*Account, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	return s.adminAdjust(ctx, adminID, userID, amount, KindAdminGive)
}

// AdminRemoveCredits изымает кредиты. Баланс не опускается ниже нуля.
func (s *Service) AdminRemoveCredits(ctx context.Context, adminID, userID, amount int64) (*Account, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	return s.adminAdjust(ctx, adminID, userID, -amount, KindAdminTake)
}

func (s *Service) adminAdjust(ctx context.Context, adminID, userID, delta int64, kind string) (*Account, error) {
	var acc *Account
	err := postgres.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		if acc, err = s.repo.LockOrCreate(ctx, tx, userID); err != nil {
			return err
		}
		applied := acc.adjustCredits(delta)
		if err := s.repo.Save(ctx, tx, acc, false); err != nil {
			return err
		}
		return s.repo.AppendLog(ctx, tx, userID, kind, applied, 0, fmt.Sprintf("admin:%d", adminID))
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"admin_id": adminID,
		"user_id":  userID,
		"delta":    delta,
		"credits":  acc.Credits,
	}).Info("Админ изменил баланс кредитов")
	metrics.RecordLedger(kind, 1)
	return acc, nil
}

// GrantDailyCredits начисляет ежедневные кредиты за день day. Идемпотентна.
func (s *Service) GrantDailyCredits(ctx context.Context, day string) (int64, error) {
	if _, err := common.ParseDayKey(day); err != nil {
		return 0, err
	}
	cfg := s.settings.GetEffectiveSettings(ctx)
	n, err := s.repo.GrantDaily(ctx, day, s.now(), int64(cfg.DailyCreditGrant), int64(cfg.DailyCreditGrantPremium))
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"day": day, "users": n}).Info("Ежедневные кредиты начислены")
	metrics.RecordLedger(KindDailyGrant, n)
	return n, nil
}

// AdminGrantAll начисляет amount кредитов всем счетам.
func (s *Service) AdminGrantAll(ctx context.Context, adminID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	n, err := s.repo.GrantAll(ctx, amount, fmt.Sprintf("admin:%d", adminID))
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"admin_id": adminID, "amount": amount, "users": n}).Warn("Кредиты начислены всем")
	metrics.RecordLedger(KindGrantAll, n)
	return n, nil
}

// AdminResetAll обнуляет кредиты и показы у всех.
func (s *Service) AdminResetAll(ctx context.Context, adminID int64) (int64, error) {
	n, err := s.repo.ResetAll(ctx, fmt.Sprintf("admin:%d", adminID))
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"admin_id": adminID, "users": n}).Warn("Все балансы обнулены")
	metrics.RecordLedger(KindResetAll, n)
	return n, nil
}
