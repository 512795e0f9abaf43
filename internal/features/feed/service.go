// Package feed — service.go: NextPhotoForViewer и оба режима выбора.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/config"
	"glowshot.ru/rating-bot/internal/db/postgres"
	"glowshot.ru/rating-bot/internal/features/photos"
	"glowshot.ru/rating-bot/internal/features/settings"
	"glowshot.ru/rating-bot/internal/metrics"
)

// Ledger списывает показ у автора внутри транзакции выдачи.
type Ledger interface {
	ConvertAndConsumeOneImpression(ctx context.Context, tx postgres.DBTX, authorID int64) (bool, error)
}

// SettingsSource отдаёт действующие настройки.
type SettingsSource interface {
	GetEffectiveSettings(ctx context.Context) settings.Settings
}

// errSkip откатывает попытку захвата, выбор переходит к следующему кандидату.
var errSkip = errors.New("кандидат пропущен")

// Service выбирает фото для зрителя.
type Service struct {
	db       *pgxpool.Pool
	repo     *Repository
	ledger   Ledger
	settings SettingsSource
	rnd      RandSource
	mode     string
	now      func() time.Time
}

// NewService создаёт селектор ленты. mode — config.FeedModeFunded или config.FeedModeRotation.
func NewService(db *pgxpool.Pool, repo *Repository, ledger Ledger, src SettingsSource, rnd RandSource, mode string) *Service {
	if rnd == nil {
		rnd = NewRand()
	}
	if mode == "" {
		mode = config.FeedModeFunded
	}
	return &Service{
		db:       db,
		repo:     repo,
		ledger:   ledger,
		settings: src,
		rnd:      rnd,
		mode:     mode,
		now:      common.GetMoscowTime,
	}
}

func anyVotes(rateable bool, limit int) filter {
	return filter{Rateable: rateable, MaxVotes: -1, Limit: limit}
}

// NextPhotoForViewer возвращает следующее фото для зрителя или nil,
// если показать нечего. Каждая выдача ставит отметку просмотра.
func (s *Service) NextPhotoForViewer(ctx context.Context, viewerID int64) (*photos.Photo, error) {
	sel, err := s.Next(ctx, viewerID)
	if err != nil || sel == nil {
		return nil, err
	}
	return sel.Photo, nil
}

// Next — то же, что NextPhotoForViewer, с указанием прохода.
func (s *Service) Next(ctx context.Context, viewerID int64) (*Selection, error) {
	cfg := s.settings.GetEffectiveSettings(ctx)
	now := s.now()

	var (
		sel *Selection
		err error
	)
	if s.mode == config.FeedModeRotation {
		sel, err = s.nextRotation(ctx, viewerID, now, cfg)
	} else {
		sel, err = s.nextFunded(ctx, viewerID, now, cfg)
	}
	if err != nil {
		return nil, err
	}

	if sel == nil {
		metrics.RecordImpression(PassEmpty)
		return nil, nil
	}
	if sel.Pass == PassRotation {
		sel.Bucket = bucketOf(sel.Photo.VotesCount, cfg.LowRatingsMax, cfg.PopularMinRatings).String()
	}
	metrics.RecordImpression(sel.Pass)
	log.WithFields(log.Fields{
		"viewer_id": viewerID,
		"photo_id":  sel.Photo.ID,
		"author_id": sel.Photo.UserID,
		"pass":      sel.Pass,
		"bucket":    sel.Bucket,
	}).Debug("Фото выдано в ленту")
	return sel, nil
}

// nextFunded: хвост разыгрывается первым, потому что он выдаётся с малой
// вероятностью «независимо от оплаты». Иначе оплаченный проход, затем любой.
func (s *Service) nextFunded(ctx context.Context, viewerID int64, now time.Time, cfg settings.Settings) (*Selection, error) {
	if s.rnd.Float64() < cfg.TailProbability {
		p, err := s.serveTail(ctx, viewerID, now, cfg)
		if err != nil || p != nil {
			return selection(p, PassTail), err
		}
	}

	p, err := s.serveFunded(ctx, viewerID, now, cfg)
	if err != nil || p != nil {
		return selection(p, PassFunded), err
	}

	p, err = s.serveFirst(ctx, viewerID, now, anyVotes(true, cfg.FeedMaxScan), true)
	return selection(p, PassAny), err
}

// serveFunded перебирает кандидатов оплаченных авторов: захват, списание показа,
// отметка просмотра. Если у автора уже нечем платить, попытка откатывается.
func (s *Service) serveFunded(ctx context.Context, viewerID int64, now time.Time, cfg settings.Settings) (*photos.Photo, error) {
	funded := true
	f := anyVotes(true, cfg.FeedMaxScan)
	f.Funded = &funded

	cands, err := s.repo.Candidates(ctx, viewerID, now, f)
	if err != nil {
		return nil, err
	}
	for _, c := range cands {
		p, err := s.claim(ctx, c.ID, viewerID, now, true, func(tx pgx.Tx, p *photos.Photo) error {
			ok, err := s.ledger.ConvertAndConsumeOneImpression(ctx, tx, p.UserID)
			if err != nil {
				return err
			}
			if !ok {
				return errSkip
			}
			return nil
		})
		if err != nil || p != nil {
			return p, err
		}
	}
	return nil, nil
}

// serveTail — неоплаченные фото с числом оценок ниже порога обычной ленты.
func (s *Service) serveTail(ctx context.Context, viewerID int64, now time.Time, cfg settings.Settings) (*photos.Photo, error) {
	if cfg.MinVotesForNormalFeed <= 0 {
		return nil, nil
	}
	unfunded := false
	f := anyVotes(true, cfg.FeedMaxScan)
	f.Funded = &unfunded
	f.MaxVotes = cfg.MinVotesForNormalFeed - 1
	return s.serveFirst(ctx, viewerID, now, f, true)
}

// serveFirst выдаёт первого кандидата, которого удалось захватить.
func (s *Service) serveFirst(ctx context.Context, viewerID int64, now time.Time, f filter, rateable bool) (*photos.Photo, error) {
	cands, err := s.repo.Candidates(ctx, viewerID, now, f)
	if err != nil {
		return nil, err
	}
	for _, c := range cands {
		p, err := s.claim(ctx, c.ID, viewerID, now, rateable, nil)
		if err != nil || p != nil {
			return p, err
		}
	}
	return nil, nil
}

// claim захватывает фото в отдельной транзакции, выполняет pay (если задан)
// и ставит отметку просмотра. nil, nil — кандидат пропущен.
func (s *Service) claim(ctx context.Context, photoID, viewerID int64, now time.Time, rateable bool, pay func(pgx.Tx, *photos.Photo) error) (*photos.Photo, error) {
	var got *photos.Photo
	err := postgres.InTx(ctx, s.db, func(tx pgx.Tx) error {
		p, err := s.repo.TryClaim(ctx, tx, photoID, viewerID, now, rateable)
		if err != nil {
			return err
		}
		if p == nil {
			return errSkip
		}
		if pay != nil {
			if err := pay(tx, p); err != nil {
				return err
			}
		}
		recorded, err := s.repo.RecordView(ctx, tx, p.ID, viewerID)
		if err != nil {
			return err
		}
		if !recorded {
			return errSkip
		}
		p.ViewsCount++
		got = p
		return nil
	})
	if errors.Is(err, errSkip) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return got, nil
}

// nextRotation — старая ротация: каждый n-й запрос «передышка», иначе корзины
// по числу оценок в порядке, сдвигаемом на шаг, с приоритетом премиум-авторов.
func (s *Service) nextRotation(ctx context.Context, viewerID int64, now time.Time, cfg settings.Settings) (*Selection, error) {
	seq, lastAuthor, err := s.repo.NextSeq(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	if isRestTurn(seq, cfg.RestEveryN) {
		p, err := s.pickRandom(ctx, viewerID, now, anyVotes(false, cfg.FeedMaxScan), false, lastAuthor)
		if err != nil || p != nil {
			return selection(p, PassRest), err
		}
	}

	if s.rnd.Float64() < cfg.PremiumBoostChance {
		f := anyVotes(true, cfg.FeedMaxScan)
		f.PremiumOnly = true
		f.ExcludeAuthor = lastAuthor
		p, err := s.pickRandom(ctx, viewerID, now, f, true, lastAuthor)
		if err != nil || p != nil {
			return selection(p, PassRotation), err
		}
	}

	for _, b := range bucketOrder(seq) {
		lo, hi := b.Bounds(cfg.LowRatingsMax, cfg.PopularMinRatings)
		f := filter{Rateable: true, MinVotes: lo, MaxVotes: hi, ExcludeAuthor: lastAuthor, Limit: cfg.FeedMaxScan}
		p, err := s.pickRandom(ctx, viewerID, now, f, true, lastAuthor)
		if err != nil || p != nil {
			return selection(p, PassRotation), err
		}
	}

	p, err := s.pickRandom(ctx, viewerID, now, anyVotes(true, cfg.FeedMaxScan), true, lastAuthor)
	if err != nil || p != nil {
		return selection(p, PassRotation), err
	}
	p, err = s.pickRandom(ctx, viewerID, now, anyVotes(false, cfg.FeedMaxScan), false, lastAuthor)
	return selection(p, PassRest), err
}

// pickRandom выдаёт случайного кандидата по фильтру, перебирая остальных,
// если выбранный занят. Запоминает автора для ротации.
func (s *Service) pickRandom(ctx context.Context, viewerID int64, now time.Time, f filter, rateable bool, lastAuthor int64) (*photos.Photo, error) {
	cands, err := s.repo.Candidates(ctx, viewerID, now, f)
	if err != nil || len(cands) == 0 {
		return nil, err
	}
	start := s.rnd.Intn(len(cands))
	for i := range cands {
		c := cands[(start+i)%len(cands)]
		p, err := s.claim(ctx, c.ID, viewerID, now, rateable, func(tx pgx.Tx, p *photos.Photo) error {
			if p.UserID == lastAuthor {
				return nil
			}
			return s.repo.SetLastAuthor(ctx, tx, viewerID, p.UserID)
		})
		if err != nil || p != nil {
			return p, err
		}
	}
	return nil, nil
}

func selection(p *photos.Photo, pass string) *Selection {
	if p == nil {
		return nil
	}
	return &Selection{Photo: p, Pass: pass}
}
