package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceKey identifies the single Balance between two identities in one
// currency. UserA is always the lexicographically smaller identity.
type BalanceKey struct {
	UserA    string
	UserB    string
	Currency Currency
}

// NewBalanceKey orders x and y so that NewBalanceKey(x, y, c) == NewBalanceKey(y, x, c).
func NewBalanceKey(x, y string, currency Currency) BalanceKey {
	if y < x {
		x, y = y, x
	}
	return BalanceKey{UserA: x, UserB: y, Currency: currency}
}

// String is the record id: "A|B|CUR".
func (k BalanceKey) String() string {
	return strings.Join([]string{k.UserA, k.UserB, string(k.Currency)}, "|")
}

// Balance is the running net debt between two identities.
// Saldo > 0 means UserB owes UserA; Saldo < 0 means UserA owes UserB.
// swagger:model Balance
type Balance struct {
	ID        string          `json:"id"`
	UserA     string          `json:"usuario_a"`
	UserB     string          `json:"usuario_b"`
	Currency  Currency        `json:"moneda"`
	Saldo     decimal.Decimal `json:"saldo"`
	UpdatedAt time.Time       `json:"fecha_actualizacion"`
}

// NewBalance returns a settled balance for key.
func NewBalance(key BalanceKey, at time.Time) *Balance {
	return &Balance{
		ID:        key.String(),
		UserA:     key.UserA,
		UserB:     key.UserB,
		Currency:  key.Currency,
		Saldo:     decimal.Zero,
		UpdatedAt: at,
	}
}

// Key rebuilds the BalanceKey of b.
func (b *Balance) Key() BalanceKey {
	return BalanceKey{UserA: b.UserA, UserB: b.UserB, Currency: b.Currency}
}

// Debt returns who owes whom and how much. Amount is zero when settled.
func (b *Balance) Debt() (debtor, creditor string, amount decimal.Decimal) {
	switch b.Saldo.Sign() {
	case 1:
		return b.UserB, b.UserA, b.Saldo
	case -1:
		return b.UserA, b.UserB, b.Saldo.Neg()
	default:
		return "", "", decimal.Zero
	}
}

// Accrual is one additive change to a Balance.
type Accrual struct {
	Key   BalanceKey
	Delta decimal.Decimal
}

// NewAccrual records that debtor owes creditor amount in currency.
func NewAccrual(debtor, creditor string, currency Currency, amount decimal.Decimal) Accrual {
	key := NewBalanceKey(debtor, creditor, currency)
	delta := amount
	if key.UserA == debtor {
		delta = amount.Neg()
	}
	return Accrual{Key: key, Delta: delta}
}

// Apply folds a into b.
func (b *Balance) Apply(a Accrual, at time.Time) {
	b.Saldo = b.Saldo.Add(a.Delta)
	b.UpdatedAt = at
}

// BalanceRepository is the Ledger Store port for balances.
type BalanceRepository interface {
	// ApplySettlement claims the settlement marker of eventID and folds every
	// accrual, all or nothing. It returns ErrAlreadySettled when the marker
	// was already set.
	ApplySettlement(ctx context.Context, eventID string, accruals []Accrual, at time.Time) error
	ListByUser(ctx context.Context, userID string, params PaginationParams) ([]*Balance, int, error)
}

// BalanceService is the Balance Engine.
type BalanceService interface {
	// Settle folds a closed event's debts into balances. It returns the
	// per-participant shares that were accrued.
	Settle(ctx context.Context, event *Event) ([]Share, error)
	ListForUser(ctx context.Context, userID string, params PaginationParams) ([]*Balance, int, error)
}

// Share is what one non-payer participant owes for an event.
type Share struct {
	UserID string
	Amount decimal.Decimal
}
