package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"vaquita/internal/domain"
)

type notificationService struct {
	pushTokens     domain.PushTokenRepository
	push           domain.PushSender
	userRepo       domain.UserRepository
	emailService   domain.EmailService
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewNotificationService returns the Notification Dispatcher.
func NewNotificationService(pushTokens domain.PushTokenRepository, push domain.PushSender, userRepo domain.UserRepository, emailService domain.EmailService, logger *slog.Logger, timeout time.Duration) domain.NotificationDispatcher {
	return &notificationService{
		pushTokens:     pushTokens,
		push:           push,
		userRepo:       userRepo,
		emailService:   emailService,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// Send delivers n to the user's registered push endpoint, falling back to
// email when none is registered. Every failure is logged and swallowed.
func (s *notificationService) Send(ctx context.Context, userID string, n domain.Notification) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	endpoint, err := s.pushTokens.GetByUserID(ctx, userID)
	switch {
	case err == nil && endpoint != "":
		if err := s.push.Send(ctx, endpoint, n); err != nil {
			s.logger.WarnContext(ctx, "push delivery failed", "uid", userID, "err", err)
		}
		return
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		s.logger.WarnContext(ctx, "push token lookup failed", "uid", userID, "err", err)
		return
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.DebugContext(ctx, "notification skipped, no profile", "uid", userID, "err", err)
		return
	}
	if user.Email == "" {
		s.logger.DebugContext(ctx, "notification skipped, no delivery channel", "uid", userID)
		return
	}
	data := &domain.NotificationEmailData{Email: user.Email, Title: n.Title, Body: n.Body}
	if err := s.emailService.SendNotification(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "email delivery failed", "uid", userID, "err", err)
	}
}

func (s *notificationService) Register(ctx context.Context, userID, token string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if userID == "" {
		return domain.ErrUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.InvalidArgument("token is required")
	}
	if err := s.pushTokens.Upsert(ctx, userID, token); err != nil {
		return domain.StorageFailure("register push token", err)
	}
	return nil
}
