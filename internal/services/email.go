package services

import (
	"context"
	"fmt"
	"log/slog"

	"vaquita/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendNotification sends a notification email using the "notification" template.
func (s *emailService) SendNotification(ctx context.Context, data *domain.NotificationEmailData) error {
	if data == nil {
		return fmt.Errorf("notification email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("notification", data)
	if err != nil {
		return fmt.Errorf("failed to render notification template: %w", err)
	}
	if err := s.mailer.Send(ctx, data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	s.logger.InfoContext(ctx, "notification email sent", "to", data.Email)
	return nil
}
