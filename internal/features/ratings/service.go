// Package ratings — service.go: запись оценки одной транзакцией и ранг автора.
package ratings

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/db/postgres"
	"glowshot.ru/rating-bot/internal/features/scoring"
	"glowshot.ru/rating-bot/internal/features/settings"
	"glowshot.ru/rating-bot/internal/features/throttle"
	"glowshot.ru/rating-bot/internal/metrics"
)

// Ledger начисляет кредиты голосующему внутри транзакции оценки.
type Ledger interface {
	AddCreditsOnVote(ctx context.Context, tx postgres.DBTX, voterID, delta int64) error
}

// SettingsSource отдаёт действующие настройки.
type SettingsSource interface {
	GetEffectiveSettings(ctx context.Context) settings.Settings
}

// MeanCache — кэш глобального среднего.
type MeanCache interface {
	GetGlobalMean(ctx context.Context) (float64, int64, error)
	Invalidate()
}

const (
	rankPhotos = 10            // Сколько последних фото учитывается в ранге
	rankMaxAge = 6 * time.Hour // Возраст кэша ранга, после которого пересчитываем
)

// errRejected откатывает транзакцию оценки, исход лежит в outcome.
var errRejected = errors.New("оценка отклонена")

// Service записывает оценки.
type Service struct {
	db       *pgxpool.Pool
	repo     *Repository
	ledger   Ledger
	settings SettingsSource
	mean     MeanCache
	now      func() time.Time
}

// NewService создаёт сервис оценок.
func NewService(db *pgxpool.Pool, repo *Repository, ledger Ledger, src SettingsSource, mean MeanCache) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		ledger:   ledger,
		settings: src,
		mean:     mean,
		now:      common.GetMoscowTime,
	}
}

// ValidateVote проверяет значение и источник до обращения к базе.
func ValidateVote(value int, source string) (string, error) {
	if value < 1 || value > 10 {
		return "", common.ErrInvalidRating
	}
	switch source {
	case "":
		return SourceNormal, nil
	case SourceNormal, SourceLink:
		return source, nil
	default:
		return "", common.ErrInvalidSource
	}
}

// RecordVote записывает оценку. false — оценка не принята (фото недоступно,
// своё фото, лимит на автора или повтор); ошибка только при сбое базы
// или некорректном значении.
func (s *Service) RecordVote(ctx context.Context, voterID, photoID int64, value int, source string) (bool, error) {
	outcome, err := s.Vote(ctx, voterID, photoID, value, source)
	return outcome == OutcomeAccepted, err
}

// Vote — то же, что RecordVote, но с причиной отказа для интерфейса.
func (s *Service) Vote(ctx context.Context, voterID, photoID int64, value int, source string) (Outcome, error) {
	source, err := ValidateVote(value, source)
	if err != nil {
		return "", err
	}

	now := s.now()
	cfg := s.settings.GetEffectiveSettings(ctx)

	var outcome Outcome
	reject := func(o Outcome) error {
		outcome = o
		return errRejected
	}

	err = postgres.InTx(ctx, s.db, func(tx pgx.Tx) error {
		p, err := s.repo.LockPhoto(ctx, tx, photoID)
		if err != nil {
			if errors.Is(err, common.ErrPhotoNotFound) {
				return reject(OutcomeUnavailable)
			}
			return err
		}
		if !p.IsRateable(now) {
			return reject(OutcomeUnavailable)
		}
		if p.UserID == voterID {
			return reject(OutcomeOwnPhoto)
		}

		rated, err := s.repo.HasRated(ctx, tx, photoID, voterID)
		if err != nil {
			return err
		}
		if rated {
			return reject(OutcomeDuplicate)
		}

		exceeded, err := throttle.CheckAndIncrementDailyCap(ctx, tx, voterID, p.UserID, common.DayKey(now), cfg.DailyAuthorVoteCap)
		if err != nil {
			return err
		}
		if exceeded {
			return reject(OutcomeThrottled)
		}

		inserted, err := s.repo.Insert(ctx, tx, photoID, voterID, value, source)
		if err != nil {
			return err
		}
		if !inserted {
			// Параллельная оценка успела раньше: откат вернёт и счётчик лимита
			return reject(OutcomeDuplicate)
		}
		if err := s.repo.BumpCounters(ctx, tx, photoID, value); err != nil {
			return err
		}
		if err := s.repo.MarkRankDirty(ctx, tx, p.UserID); err != nil {
			return err
		}
		return s.ledger.AddCreditsOnVote(ctx, tx, voterID, 1)
	})

	switch {
	case errors.Is(err, errRejected):
		metrics.RecordVote(string(outcome))
		log.WithFields(log.Fields{
			"voter_id": voterID,
			"photo_id": photoID,
			"outcome":  outcome,
		}).Debug("Оценка не принята")
		return outcome, nil
	case err != nil:
		metrics.RecordVote("error")
		return "", err
	}

	s.mean.Invalidate()
	metrics.RecordVote(string(OutcomeAccepted))
	log.WithFields(log.Fields{
		"voter_id": voterID,
		"photo_id": photoID,
		"value":    value,
		"source":   source,
	}).Debug("Оценка записана")
	return OutcomeAccepted, nil
}

// HasRated сообщает, оценивал ли пользователь фото.
func (s *Service) HasRated(ctx context.Context, voterID, photoID int64) (bool, error) {
	return s.repo.HasRated(ctx, s.db, photoID, voterID)
}

// ListByPhoto возвращает последние оценки фото.
func (s *Service) ListByPhoto(ctx context.Context, photoID int64, limit int) ([]Vote, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByPhoto(ctx, photoID, limit)
}

// RemainingForAuthor — сколько ещё оценок voter может поставить автору сегодня (-1 — без лимита).
func (s *Service) RemainingForAuthor(ctx context.Context, voterID, authorID int64) (int, error) {
	cfg := s.settings.GetEffectiveSettings(ctx)
	return throttle.Remaining(ctx, s.db, voterID, authorID, common.DayKey(s.now()), cfg.DailyAuthorVoteCap)
}

// AuthorRank возвращает ранг автора, пересчитывая кэш, если он устарел
// или после него появились новые оценки.
func (s *Service) AuthorRank(ctx context.Context, userID int64) (*AuthorRank, error) {
	st, err := s.repo.RankState(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !st.Dirty && st.UpdatedAt != nil && now.Sub(*st.UpdatedAt) < rankMaxAge {
		return &AuthorRank{
			UserID:    userID,
			Points:    st.Points,
			Rank:      scoring.RankFromPoints(st.Points),
			UpdatedAt: *st.UpdatedAt,
		}, nil
	}

	cfg := s.settings.GetEffectiveSettings(ctx)
	mean, _, err := s.mean.GetGlobalMean(ctx)
	if err != nil {
		return nil, err
	}
	aggs, err := s.repo.RecentAggregates(ctx, userID, cfg.LinkRatingWeight, rankPhotos)
	if err != nil {
		return nil, err
	}
	points := rankPointsOf(aggs, mean, cfg.BayesPriorFeed)
	rank := scoring.RankFromPoints(points)

	if err := s.repo.SaveRank(ctx, userID, points, rank.Code); err != nil {
		return nil, err
	}
	return &AuthorRank{UserID: userID, Points: points, Rank: rank, UpdatedAt: now}, nil
}

// rankPointsOf суммирует вклад фото в ранг и округляет до целого.
func rankPointsOf(aggs []photoAggregate, mean float64, prior int) int {
	var total float64
	for _, a := range aggs {
		score, ok := scoring.Score(a.WeightedSum, a.Weight, mean, prior)
		if !ok {
			continue
		}
		total += scoring.RankPoints(score, a.Count)
	}
	return int(math.Round(total))
}
