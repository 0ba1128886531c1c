package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaquita/internal/domain"
)

func closedEvent(id, amount, payer string, uids ...string) *domain.Event {
	participants := make([]domain.Participant, 0, len(uids))
	for _, uid := range uids {
		participants = append(participants, domain.Participant{UserID: uid})
	}
	return &domain.Event{
		ID:           id,
		Currency:     domain.CurrencyUSD,
		Amount:       decimal.RequireFromString(amount),
		Status:       domain.StatusClosed,
		CreatorID:    uids[0],
		PayerID:      payer,
		Participants: domain.SplitEqually(participants),
	}
}

func TestBalanceService_Settle(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		event      *domain.Event
		setup      func(repo *fakeBalanceRepo)
		wantErr    error
		wantShares int
		assert     func(t *testing.T, repo *fakeBalanceRepo)
	}{
		{
			name:       "payer defaults to creator",
			event:      closedEvent("ev-1", "300", "", "u1", "u2", "u3"),
			wantShares: 2,
			assert: func(t *testing.T, repo *fakeBalanceRepo) {
				assertOwes(t, repo, "u2", "u1", domain.CurrencyUSD, "100")
				assertOwes(t, repo, "u3", "u1", domain.CurrencyUSD, "100")
				assert.Nil(t, repo.balance("u2", "u3", domain.CurrencyUSD))
			},
		},
		{
			name:       "explicit payer",
			event:      closedEvent("ev-1", "10", "u2", "u1", "u2"),
			wantShares: 1,
			assert: func(t *testing.T, repo *fakeBalanceRepo) {
				assertOwes(t, repo, "u1", "u2", domain.CurrencyUSD, "5")
			},
		},
		{
			name:       "single participant accrues nothing",
			event:      closedEvent("ev-1", "10", "", "u1"),
			wantShares: 0,
			assert: func(t *testing.T, repo *fakeBalanceRepo) {
				assert.True(t, repo.settled["ev-1"])
				assert.Empty(t, repo.byKey)
			},
		},
		{
			name: "event still open",
			event: func() *domain.Event {
				e := closedEvent("ev-1", "10", "", "u1", "u2")
				e.Status = domain.StatusOpen
				return e
			}(),
			wantErr: domain.ErrInvalidState,
		},
		{
			name:    "payer not a participant",
			event:   closedEvent("ev-1", "10", "u9", "u1", "u2"),
			wantErr: domain.ErrInvalidState,
			assert: func(t *testing.T, repo *fakeBalanceRepo) {
				assert.Empty(t, repo.byKey)
				assert.False(t, repo.settled["ev-1"])
			},
		},
		{
			name:    "already settled",
			event:   closedEvent("ev-1", "10", "", "u1", "u2"),
			setup:   func(repo *fakeBalanceRepo) { repo.settled["ev-1"] = true },
			wantErr: domain.ErrAlreadySettled,
			assert: func(t *testing.T, repo *fakeBalanceRepo) {
				assert.Empty(t, repo.byKey)
			},
		},
		{
			name:    "store failure",
			event:   closedEvent("ev-1", "10", "", "u1", "u2"),
			setup:   func(repo *fakeBalanceRepo) { repo.applyErr = errors.New("tx aborted") },
			wantErr: domain.ErrStorageFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeBalanceRepo()
			if tt.setup != nil {
				tt.setup(repo)
			}
			svc := NewBalanceService(repo, 5*time.Second)
			shares, err := svc.Settle(ctx, tt.event)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Len(t, shares, tt.wantShares)
			}
			if tt.assert != nil {
				tt.assert(t, repo)
			}
		})
	}
}

func TestBalanceService_Settle_Twice(t *testing.T) {
	ctx := context.Background()
	repo := newFakeBalanceRepo()
	svc := NewBalanceService(repo, 5*time.Second)
	event := closedEvent("ev-1", "300", "", "u1", "u2", "u3")

	_, err := svc.Settle(ctx, event)
	require.NoError(t, err)
	_, err = svc.Settle(ctx, event)
	require.ErrorIs(t, err, domain.ErrAlreadySettled)

	assertOwes(t, repo, "u2", "u1", domain.CurrencyUSD, "100")
}

func TestBalanceService_Settle_CurrenciesAreSeparate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeBalanceRepo()
	svc := NewBalanceService(repo, 5*time.Second)

	usd := closedEvent("ev-1", "20", "", "u1", "u2")
	ars := closedEvent("ev-2", "1000", "", "u1", "u2")
	ars.Currency = domain.CurrencyARS

	_, err := svc.Settle(ctx, usd)
	require.NoError(t, err)
	_, err = svc.Settle(ctx, ars)
	require.NoError(t, err)

	assertOwes(t, repo, "u2", "u1", domain.CurrencyUSD, "10")
	assertOwes(t, repo, "u2", "u1", domain.CurrencyARS, "500")
}

func TestBalanceService_ListForUser(t *testing.T) {
	ctx := context.Background()
	repo := newFakeBalanceRepo()
	svc := NewBalanceService(repo, 5*time.Second)
	_, err := svc.Settle(ctx, closedEvent("ev-1", "300", "", "u1", "u2", "u3"))
	require.NoError(t, err)

	t.Run("lists every balance of the user", func(t *testing.T) {
		got, total, err := svc.ListForUser(ctx, "u1", domain.PaginationParams{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, got, 2)
	})
	t.Run("pages", func(t *testing.T) {
		got, total, err := svc.ListForUser(ctx, "u1", domain.PaginationParams{Page: 2, PageSize: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, got, 1)
		assert.Equal(t, "u1|u3|USD", got[0].ID)
	})
	t.Run("empty is not nil", func(t *testing.T) {
		got, total, err := svc.ListForUser(ctx, "u7", domain.PaginationParams{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.NotNil(t, got)
	})
	t.Run("unauthenticated", func(t *testing.T) {
		_, _, err := svc.ListForUser(ctx, "", domain.PaginationParams{Page: 1, PageSize: 10})
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
	t.Run("store failure", func(t *testing.T) {
		repo.listErr = errors.New("db down")
		defer func() { repo.listErr = nil }()
		_, _, err := svc.ListForUser(ctx, "u1", domain.PaginationParams{Page: 1, PageSize: 10})
		assert.ErrorIs(t, err, domain.ErrStorageFailure)
	})
}
