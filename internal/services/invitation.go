package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vaquita/internal/domain"
)

type invitationService struct {
	invitationRepo domain.InvitationRepository
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	notifier       domain.Notifier
	audit          domain.AuditLogger
	logger         *slog.Logger
	now            func() time.Time
	contextTimeout time.Duration
}

// NewInvitationService returns the Invitation Gate.
func NewInvitationService(
	invitationRepo domain.InvitationRepository,
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	notifier domain.Notifier,
	audit domain.AuditLogger,
	logger *slog.Logger,
	timeout time.Duration,
) domain.InvitationService {
	return &invitationService{
		invitationRepo: invitationRepo,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		audit:          audit,
		logger:         logger,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

// Redeem admits requesterID into the event owning token. Every precondition
// is checked before any mutation; the store re-checks the cap and membership
// atomically so concurrent redemptions cannot lose a participant.
func (s *invitationService) Redeem(ctx context.Context, token, requesterID string) (*domain.JoinResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if requesterID == "" {
		return nil, domain.ErrUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.InvalidArgument("token is required")
	}

	inv, err := s.invitationRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.StorageFailure("get invitation", err)
	}
	now := s.now()
	if err := inv.Usable(now); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, inv.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.StorageFailure("get event", err)
	}
	if event.Status != domain.StatusOpen {
		return nil, domain.InvalidState("event %s is %s", event.ID, event.Status)
	}
	if event.HasParticipant(requesterID) {
		return nil, domain.ErrAlreadyMember
	}

	participant := domain.Participant{UserID: requesterID, Alias: s.aliasOf(ctx, requesterID)}
	participants, err := s.invitationRepo.Redeem(ctx, domain.JoinRequest{
		Token:       token,
		EventID:     event.ID,
		Participant: participant,
		At:          now,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvitationExhausted),
			errors.Is(err, domain.ErrInvitationExpired),
			errors.Is(err, domain.ErrAlreadyMember),
			errors.Is(err, domain.ErrInvalidState),
			errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		return nil, domain.StorageFailure("redeem invitation", err)
	}

	s.notifier.Send(ctx, event.CreatorID, domain.Notification{
		Title: "Nuevo participante",
		Body:  fmt.Sprintf("%s se unió a %s", participant.Alias, event.Title),
		Data:  map[string]string{"evento_id": event.ID, "uid": requesterID},
	})
	s.audit.Log(domain.NewAuditEntry(domain.AuditParticipantJoined, now,
		domain.WithAuditMetadata("evento_id", event.ID),
		domain.WithAuditMetadata("uid", requesterID),
		domain.WithAuditMetadata("token", token),
	))

	return &domain.JoinResult{
		EventID:      event.ID,
		Title:        event.Title,
		Participants: len(participants),
	}, nil
}

func (s *invitationService) aliasOf(ctx context.Context, userID string) string {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "user profile lookup failed", "uid", userID, "err", err)
		}
		return domain.DefaultAlias
	}
	return user.Alias()
}
