package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vaquita/internal/domain"
)

type balanceService struct {
	balanceRepo    domain.BalanceRepository
	now            func() time.Time
	contextTimeout time.Duration
}

// NewBalanceService returns the Balance Engine backed by balanceRepo.
func NewBalanceService(balanceRepo domain.BalanceRepository, timeout time.Duration) domain.BalanceService {
	return &balanceService{
		balanceRepo:    balanceRepo,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

func (s *balanceService) Settle(ctx context.Context, event *domain.Event) ([]domain.Share, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.Status != domain.StatusClosed {
		return nil, domain.InvalidState("event %s is %s", event.ID, event.Status)
	}
	if event.PayerID != "" && !event.HasParticipant(event.PayerID) {
		return nil, domain.InvalidState("payer %s is not a participant of event %s", event.PayerID, event.ID)
	}

	payer := event.EffectivePayer()
	shares := event.DebtorShares()
	accruals := make([]domain.Accrual, 0, len(shares))
	for _, sh := range shares {
		accruals = append(accruals, domain.NewAccrual(sh.UserID, payer, event.Currency, sh.Amount))
	}

	if err := s.balanceRepo.ApplySettlement(ctx, event.ID, accruals, s.now()); err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			return nil, err
		}
		return nil, domain.StorageFailure(fmt.Sprintf("settle event %s", event.ID), err)
	}
	return shares, nil
}

func (s *balanceService) ListForUser(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.Balance, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if userID == "" {
		return nil, 0, domain.ErrUnauthenticated
	}
	balances, total, err := s.balanceRepo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, 0, domain.StorageFailure("list balances", err)
	}
	if balances == nil {
		balances = []*domain.Balance{}
	}
	return balances, total, nil
}
