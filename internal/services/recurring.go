package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vaquita/internal/domain"
)

// SpawnNext creates the successor of a closed monthly event together with a
// fresh invitation. It returns nil, nil when a successor was already claimed.
func (s *eventService) SpawnNext(ctx context.Context, original *domain.Event) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	token, err := s.tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}
	now := s.now()
	next := successorOf(original, uuid.NewString(), token, now)

	claimed, err := s.eventRepo.ClaimSuccessor(ctx, original.ID, next.ID)
	if err != nil {
		return nil, domain.StorageFailure("claim successor", err)
	}
	if !claimed {
		s.logger.InfoContext(ctx, "successor already spawned", "evento_id", original.ID)
		return nil, nil
	}

	if err := s.createSuccessor(ctx, original, next, now); err != nil {
		if relErr := s.eventRepo.ReleaseSuccessor(ctx, original.ID, next.ID); relErr != nil {
			s.logger.ErrorContext(ctx, "release successor claim failed", "evento_id", original.ID, "err", relErr)
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "successor spawned", "evento_id", original.ID, "siguiente_id", next.ID)
	return next, nil
}

func (s *eventService) createSuccessor(ctx context.Context, original, next *domain.Event, now time.Time) error {
	if err := s.eventRepo.Create(ctx, next); err != nil {
		return domain.StorageFailure("create successor", err)
	}
	expires := now.Add(s.policy.RecurringTTL)
	inv := &domain.Invitation{
		Token:     next.Token,
		EventID:   next.ID,
		CreatorID: original.CreatorID,
		CreatedAt: now,
		ExpiresAt: &expires,
		MaxUses:   s.policy.MaxUses,
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		if delErr := s.eventRepo.Delete(ctx, next.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "delete orphan successor failed", "evento_id", next.ID, "err", delErr)
		}
		return domain.StorageFailure("create successor invitation", err)
	}
	return nil
}

// successorOf copies the recurring attributes of original into an open event
// one period later.
func successorOf(original *domain.Event, id, token string, now time.Time) *domain.Event {
	participants := make([]domain.Participant, len(original.Participants))
	copy(participants, original.Participants)

	next := &domain.Event{
		ID:                   id,
		Title:                domain.NextTitle(original.Title),
		Currency:             original.Currency,
		Amount:               original.Amount,
		Recurrence:           original.Recurrence,
		Status:               domain.StatusOpen,
		PaymentMethod:        original.PaymentMethod,
		CreatorID:            original.CreatorID,
		CreatedAt:            now,
		UpdatedAt:            now,
		Participants:         participants,
		Token:                token,
		Attachments:          []domain.Attachment{},
		Detail:               original.Detail,
		ExpectedParticipants: original.ExpectedParticipants,
		Period:               domain.NextPeriod(original.Period, original.CreatedAt),
	}
	if original.DueAt != nil {
		due := domain.AddMonthClamped(*original.DueAt)
		next.DueAt = &due
	}
	return next
}
