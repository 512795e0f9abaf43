// Package admin — service.go: проверка пароля, блокировка перебора и сессии.
package admin

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/config"
)

// Service управляет входом администраторов.
type Service struct {
	repo         *Repository
	passwordHash string
	adminIDs     map[int64]bool
	ttl          time.Duration
	now          func() time.Time
}

// NewService создаёт сервис входа. Администраторы — ADMIN_IDS из конфига.
func NewService(repo *Repository, cfg *config.Config) *Service {
	ids := make(map[int64]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		ids[id] = true
	}
	ttl := cfg.AdminSessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		repo:         repo,
		passwordHash: cfg.AdminPasswordHash,
		adminIDs:     ids,
		ttl:          ttl,
		now:          time.Now,
	}
}

// IsAdmin проверяет, входит ли пользователь в ADMIN_IDS.
func (s *Service) IsAdmin(userID int64) bool {
	return s.adminIDs[userID]
}

// Login проверяет пароль и открывает сессию.
// 3 неудачные попытки за час блокируют вход до конца часа.
func (s *Service) Login(ctx context.Context, userID int64, password string) (*Session, error) {
	if !s.IsAdmin(userID) {
		return nil, common.ErrNotAdmin
	}

	now := s.now()
	failed, err := s.repo.CountFailedAttempts(ctx, userID, now.Add(-lockoutWindow))
	if err != nil {
		return nil, err
	}
	if failed >= maxFailedAttempts {
		log.WithField("user_id", userID).Warn("Вход администратора заблокирован")
		return nil, common.ErrTooManyAttempts
	}

	match := verifyArgon2id(strings.TrimSpace(password), s.passwordHash)
	if err := s.repo.LogAttempt(ctx, userID, match); err != nil {
		log.WithError(err).Warn("Не удалось записать попытку входа")
	}
	if !match {
		log.WithFields(log.Fields{"user_id": userID, "failed": failed + 1}).Warn("Неверный пароль администратора")
		return nil, common.ErrWrongPassword
	}

	token, err := generateSecureToken()
	if err != nil {
		return nil, err
	}
	session := &Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	log.WithField("user_id", userID).Info("Администратор вошёл")
	return session, nil
}

// Authenticate возвращает сессию по токену и продлевает её активность.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, common.ErrSessionExpired
	}
	now := s.now()
	session, err := s.repo.GetSessionByToken(ctx, token, now)
	if err != nil {
		return nil, err
	}
	if session == nil || !s.IsAdmin(session.UserID) {
		return nil, common.ErrSessionExpired
	}
	if err := s.repo.UpdateActivity(ctx, session.ID, now); err != nil {
		log.WithError(err).Debug("Не удалось обновить активность сессии")
	}
	return session, nil
}

// HasActiveSession проверяет, есть ли у администратора открытая сессия.
func (s *Service) HasActiveSession(ctx context.Context, userID int64) bool {
	if !s.IsAdmin(userID) {
		return false
	}
	session, err := s.repo.GetActiveSession(ctx, userID, s.now())
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка проверки сессии")
		return false
	}
	return session != nil
}

// Logout закрывает все сессии администратора.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.repo.DeactivateSessions(ctx, userID)
}
