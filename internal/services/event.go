package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vaquita/internal/domain"
)

const rollbackTimeout = 5 * time.Second

type eventService struct {
	eventRepo      domain.EventRepository
	invitationRepo domain.InvitationRepository
	userRepo       domain.UserRepository
	balances       domain.BalanceService
	notifier       domain.Notifier
	audit          domain.AuditLogger
	tokens         domain.TokenGenerator
	policy         domain.InvitationPolicy
	logger         *slog.Logger
	now            func() time.Time
	contextTimeout time.Duration
}

// NewEventService returns the Event Lifecycle Controller.
func NewEventService(eventRepo domain.EventRepository,
	invitationRepo domain.InvitationRepository,
	userRepo domain.UserRepository,
	balances domain.BalanceService,
	notifier domain.Notifier,
	audit domain.AuditLogger,
	tokens domain.TokenGenerator,
	policy domain.InvitationPolicy,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		invitationRepo: invitationRepo,
		userRepo:       userRepo,
		balances:       balances,
		notifier:       notifier,
		audit:          audit,
		tokens:         tokens,
		policy:         policy,
		logger:         logger,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, in domain.CreateEventInput) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if in.CreatorID == "" {
		return nil, domain.ErrUnauthenticated
	}

	now := s.now()
	event := domain.NewEvent(in.Title, in.Currency, in.Amount, in.Recurrence, in.CreatorID, s.aliasOf(ctx, in.CreatorID), now)
	event.PaymentMethod = in.PaymentMethod
	event.DueAt = in.DueAt
	event.Detail = in.Detail
	event.ExpectedParticipants = in.ExpectedParticipants
	if err := event.Validate(); err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}
	event.ID = uuid.NewString()
	event.Token = token

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, domain.StorageFailure("create event", err)
	}
	inv := &domain.Invitation{
		Token:     token,
		EventID:   event.ID,
		CreatorID: in.CreatorID,
		CreatedAt: now,
		MaxUses:   s.policy.MaxUses,
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		if delErr := s.eventRepo.Delete(ctx, event.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "delete event without invitation failed", "evento_id", event.ID, "err", delErr)
		}
		return nil, domain.StorageFailure("create invitation", err)
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID, callerID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.StorageFailure("get event", err)
	}
	if !event.HasParticipant(callerID) {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *eventService) CloseEvent(ctx context.Context, eventID, callerID, payerID, paymentMethod string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	before, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.StorageFailure("get event", err)
	}
	if before.CreatorID != callerID {
		return nil, domain.ErrForbidden
	}
	if before.Status != domain.StatusOpen {
		return nil, domain.InvalidState("event %s is already %s", eventID, before.Status)
	}
	if paymentMethod == "" {
		paymentMethod = before.PaymentMethod
	}

	after, err := s.eventRepo.Close(ctx, eventID, payerID, paymentMethod, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, domain.StorageFailure("close event", err)
	}
	if err := s.HandleEventWrite(ctx, before, after); err != nil {
		return nil, err
	}
	return after, nil
}

func (s *eventService) HandleEventWrite(ctx context.Context, before, after *domain.Event) error {
	tr := domain.PlanTransition(before, after)
	if tr == nil {
		return nil
	}
	redelivered, err := s.apply(ctx, tr)
	if err != nil {
		s.rollback(ctx, after, err)
		return err
	}
	if redelivered {
		return nil
	}
	s.audit.Log(domain.NewAuditEntry(domain.AuditEventClosed, s.now(),
		domain.WithAuditMetadata("evento_id", after.ID),
		domain.WithAuditMetadata("quien_pago", after.EffectivePayer()),
	))
	return nil
}

// apply runs the effects of tr in order. redelivered reports that the close
// had already been settled, which only happens when the same close is
// delivered again: Reopen clears the marker, so a later close starts over.
// Participants are not notified twice.
func (s *eventService) apply(ctx context.Context, tr *domain.Transition) (redelivered bool, err error) {
	event := tr.After
	if err := domain.ValidateClose(event); err != nil {
		return false, err
	}
	var shares []domain.Share
	for _, effect := range tr.Effects {
		switch effect {
		case domain.EffectSettle:
			shares, err = s.balances.Settle(ctx, event)
			if errors.Is(err, domain.ErrAlreadySettled) {
				s.logger.InfoContext(ctx, "settlement already applied", "evento_id", event.ID)
				redelivered = true
			} else if err != nil {
				return false, fmt.Errorf("settle event %s: %w", event.ID, err)
			}
		case domain.EffectSpawnNext:
			if _, err := s.SpawnNext(ctx, event); err != nil {
				return redelivered, fmt.Errorf("spawn successor of %s: %w", event.ID, err)
			}
		case domain.EffectNotifyParticipants:
			if !redelivered {
				s.notifyClosed(ctx, event, shares)
			}
		}
	}
	return redelivered, nil
}

// rollback reverts a failed close so the event is never left visibly closed.
// Reopen also reverts the balances the close settled, so the ledger matches
// whatever payer and participants the next close has.
func (s *eventService) rollback(ctx context.Context, event *domain.Event, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	s.logger.WarnContext(ctx, "close transition failed, reopening event", "evento_id", event.ID, "err", cause)
	if err := s.eventRepo.Reopen(ctx, event.ID); err != nil {
		s.logger.ErrorContext(ctx, "reopen event failed", "evento_id", event.ID, "err", err)
		return
	}
	s.audit.Log(domain.NewAuditEntry(domain.AuditEventRolledBack, s.now(),
		domain.WithAuditMetadata("evento_id", event.ID),
		domain.WithAuditMetadata("reason", cause.Error()),
	))
}

func (s *eventService) notifyClosed(ctx context.Context, event *domain.Event, shares []domain.Share) {
	for _, sh := range shares {
		amount := sh.Amount.StringFixed(2)
		s.notifier.Send(ctx, sh.UserID, domain.Notification{
			Title: "Evento cerrado",
			Body:  fmt.Sprintf("%s: te corresponde pagar %s %s", event.Title, amount, event.Currency),
			Data: map[string]string{
				"evento_id": event.ID,
				"monto":     amount,
				"moneda":    string(event.Currency),
			},
		})
	}
}

// aliasOf resolves a participant alias. Profile lookups are best-effort.
func (s *eventService) aliasOf(ctx context.Context, userID string) string {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "user profile lookup failed", "uid", userID, "err", err)
		}
		return domain.DefaultAlias
	}
	return user.Alias()
}
