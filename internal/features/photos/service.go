// Package photos — service.go: правила публикации и удаления.
package photos

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
)

const (
	maxTitleLen   = 255
	maxCommentLen = 1000
)

// ReportThreshold — после стольких открытых жалоб фото уходит на проверку.
const ReportThreshold = 3

// Service управляет жизненным циклом фотографий.
type Service struct {
	repo     *Repository
	lifetime time.Duration
	now      func() time.Time
}

// NewService создаёт сервис фотографий; lifetime — сколько фото живёт в ленте.
func NewService(repo *Repository, lifetime time.Duration) *Service {
	return &Service{repo: repo, lifetime: lifetime, now: common.GetMoscowTime}
}

// Publish публикует фото. Когорта (day_key) — день публикации по Москве.
func (s *Service) Publish(ctx context.Context, req PublishRequest) (*Photo, error) {
	req.FileID = strings.TrimSpace(req.FileID)
	req.Title = strings.TrimSpace(req.Title)
	req.Tag = strings.ToLower(strings.TrimSpace(req.Tag))
	if req.UserID == 0 || req.FileID == "" {
		return nil, fmt.Errorf("не указан автор или файл")
	}
	if utf8.RuneCountInString(req.Title) > maxTitleLen {
		return nil, fmt.Errorf("название длиннее %d символов", maxTitleLen)
	}

	now := s.now()
	p, err := s.repo.Create(ctx, req, common.DayKey(now), now.Add(s.lifetime))
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"photo_id": p.ID,
		"user_id":  p.UserID,
		"day_key":  p.DayKey,
	}).Info("Фото опубликовано")
	return p, nil
}

// Get возвращает фото по ID.
func (s *Service) Get(ctx context.Context, photoID int64) (*Photo, error) {
	return s.repo.GetByID(ctx, photoID)
}

// Delete мягко удаляет фото. Удалять может владелец или модератор (byModerator).
func (s *Service) Delete(ctx context.Context, photoID, actorID int64, byModerator bool) error {
	p, err := s.repo.GetByID(ctx, photoID)
	if err != nil {
		return err
	}
	if !byModerator && p.UserID != actorID {
		return common.ErrPhotoNotFound
	}
	if err := s.repo.SoftDelete(ctx, photoID); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"photo_id":     photoID,
		"actor_id":     actorID,
		"by_moderator": byModerator,
	}).Info("Фото удалено")
	return nil
}

// ArchiveExpired архивирует фото с истёкшим сроком (после подсчёта итогов).
func (s *Service) ArchiveExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.ArchiveExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.WithField("count", n).Info("Фото отправлены в архив")
	}
	return n, nil
}

// ListByUser возвращает последние фото автора.
func (s *Service) ListByUser(ctx context.Context, userID int64, limit int) ([]*Photo, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// Report регистрирует жалобу на фото и возвращает число открытых жалоб.
// На пороге ReportThreshold фото снимается из ленты и итогов до проверки.
func (s *Service) Report(ctx context.Context, photoID, reporterID int64) (int, error) {
	p, err := s.repo.GetByID(ctx, photoID)
	if err != nil {
		return 0, err
	}
	if p.Status == StatusDeleted {
		return 0, common.ErrPhotoNotFound
	}
	if err := s.repo.AddReport(ctx, photoID, reporterID); err != nil {
		return 0, err
	}
	pending, err := s.repo.PendingReportCount(ctx, photoID)
	if err != nil {
		return 0, err
	}
	if pending >= ReportThreshold && p.ModerationStatus == ModerationActive {
		if err := s.repo.SetModerationStatus(ctx, photoID, ModerationPending); err != nil {
			return pending, err
		}
		log.WithFields(log.Fields{"photo_id": photoID, "reports": pending}).Warn("Фото отправлено на проверку по жалобам")
	}
	return pending, nil
}

// PendingReports возвращает число открытых жалоб на фото.
func (s *Service) PendingReports(ctx context.Context, photoID int64) (int, error) {
	return s.repo.PendingReportCount(ctx, photoID)
}

// Moderate выставляет решение модератора. Любое решение закрывает открытые жалобы.
func (s *Service) Moderate(ctx context.Context, photoID int64, status string) (int64, error) {
	switch status {
	case ModerationActive, ModerationPending, ModerationRejected:
	default:
		return 0, fmt.Errorf("%w: %q", common.ErrInvalidModeration, status)
	}
	if err := s.repo.SetModerationStatus(ctx, photoID, status); err != nil {
		return 0, err
	}
	if status == ModerationPending {
		return 0, nil
	}
	resolved, err := s.repo.ResolveReports(ctx, photoID)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"photo_id": photoID,
		"status":   status,
		"resolved": resolved,
	}).Info("Решение модерации")
	return resolved, nil
}

// Comment сохраняет комментарий к фото.
func (s *Service) Comment(ctx context.Context, photoID, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: пустой комментарий", common.ErrInvalidComment)
	}
	if utf8.RuneCountInString(text) > maxCommentLen {
		return fmt.Errorf("%w: длиннее %d символов", common.ErrInvalidComment, maxCommentLen)
	}
	p, err := s.repo.GetByID(ctx, photoID)
	if err != nil {
		return err
	}
	if p.Status == StatusDeleted {
		return common.ErrPhotoNotFound
	}
	return s.repo.AddComment(ctx, photoID, userID, text)
}
