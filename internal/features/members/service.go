// Package members — service.go: регистрация пользователей и чтение профильных
// фактов (город, страна, премиум, приглашения) для ленты и итогов.
package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
)

// Service управляет пользователями.
type Service struct {
	repo *Repository
	now  func() time.Time
}

// NewService создаёт новый сервис пользователей.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// EnsureMember гарантирует, что пользователь есть в базе, и освежает имя.
func (s *Service) EnsureMember(ctx context.Context, userID int64, username, firstName string) error {
	if userID == 0 {
		return fmt.Errorf("пустой user_id")
	}
	return s.repo.Upsert(ctx, userID, username, firstName)
}

// GetByUserID возвращает пользователя по Telegram ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// SetLocation сохраняет город и страну (обрезая пробелы).
func (s *Service) SetLocation(ctx context.Context, userID int64, city, country string) error {
	loc := Location{City: strings.TrimSpace(city), Country: strings.TrimSpace(country)}
	if err := s.repo.SetLocation(ctx, userID, loc); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"city":    loc.City,
		"country": loc.Country,
	}).Info("Обновлено местоположение пользователя")
	return nil
}

// GrantPremium продлевает премиум на days дней от текущего момента
// или от конца действующей подписки.
func (s *Service) GrantPremium(ctx context.Context, userID int64, days int) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, common.ErrInvalidDays
	}
	m, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	from := s.now()
	if m.IsPremiumAt(from) {
		from = *m.PremiumUntil
	}
	until := from.AddDate(0, 0, days)
	if err := s.repo.SetPremiumUntil(ctx, userID, until); err != nil {
		return time.Time{}, err
	}
	log.WithFields(log.Fields{"user_id": userID, "until": until}).Info("Премиум выдан")
	return until, nil
}

// IsPremiumActive сообщает, активен ли премиум. Неизвестный пользователь — не премиум.
func (s *Service) IsPremiumActive(ctx context.Context, userID int64) (bool, error) {
	m, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, common.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.IsPremiumAt(s.now()), nil
}

// QualifiedInviteCount возвращает число засчитанных приглашений.
func (s *Service) QualifiedInviteCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.QualifiedInviteCount(ctx, userID)
}

// AddReferral записывает приглашение (самоприглашение игнорируется).
func (s *Service) AddReferral(ctx context.Context, inviterID, inviteeID int64, qualified bool) error {
	if inviterID == inviteeID {
		return nil
	}
	return s.repo.AddReferral(ctx, inviterID, inviteeID, qualified)
}

// QualifyReferral засчитывает приглашение после первой публикации приглашённого.
func (s *Service) QualifyReferral(ctx context.Context, inviteeID int64) error {
	ok, err := s.repo.QualifyReferral(ctx, inviteeID)
	if err != nil {
		return err
	}
	if ok {
		log.WithField("invitee_id", inviteeID).Info("Приглашение засчитано")
	}
	return nil
}
