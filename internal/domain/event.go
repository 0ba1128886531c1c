package domain

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an Event.
type Status string

const (
	StatusOpen   Status = "abierto"
	StatusClosed Status = "cerrado"
)

// Currency is one of the supported currency codes.
type Currency string

const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
)

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	return c == CurrencyARS || c == CurrencyUSD
}

// Recurrence tells whether a closed event spawns a successor.
type Recurrence string

const (
	RecurrenceOnce    Recurrence = "unica"
	RecurrenceMonthly Recurrence = "mensual"
)

// Valid reports whether r is a supported recurrence.
func (r Recurrence) Valid() bool {
	return r == RecurrenceOnce || r == RecurrenceMonthly
}

const (
	// MaxTitleLength is measured in characters, not bytes.
	MaxTitleLength = 80
	// PeriodLayout formats Event.Period.
	PeriodLayout = "2006-01"
)

// Participant is one identity sharing an event's cost.
// swagger:model Participant
type Participant struct {
	UserID   string  `json:"uid"`
	Alias    string  `json:"alias"`
	Fraction float64 `json:"participacion"`
}

// Attachment is the metadata of an uploaded file linked to an event.
// swagger:model Attachment
type Attachment struct {
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"subido_por"`
	UploadedAt  time.Time `json:"fecha_subida"`
}

// Event is a shared expense.
// swagger:model Event
type Event struct {
	ID                   string          `json:"id"`
	Title                string          `json:"titulo"`
	Currency             Currency        `json:"moneda"`
	Amount               decimal.Decimal `json:"monto"`
	Recurrence           Recurrence      `json:"repeticion"`
	Status               Status          `json:"estado"`
	PaymentMethod        string          `json:"forma_pago"`
	DueAt                *time.Time      `json:"fecha_vencimiento,omitempty"`
	CreatorID            string          `json:"creador"`
	CreatedAt            time.Time       `json:"fecha_creacion"`
	PayerID              string          `json:"quien_pago,omitempty"`
	PaidAt               *time.Time      `json:"fecha_pago,omitempty"`
	Participants         []Participant   `json:"participantes"`
	Token                string          `json:"token"`
	Attachments          []Attachment    `json:"adjuntos"`
	Detail               string          `json:"detalle,omitempty"`
	ExpectedParticipants *int            `json:"participantes_definidos,omitempty"`
	Period               string          `json:"periodo"`
	SettledAt            *time.Time      `json:"liquidado_en,omitempty"`
	NextEventID          string          `json:"siguiente_id,omitempty"`
	UpdatedAt            time.Time       `json:"fecha_actualizacion"`
}

// NewEvent returns an open Event whose only participant is the creator.
// ID and Token are set by the caller.
func NewEvent(title string, currency Currency, amount decimal.Decimal, recurrence Recurrence, creatorID, creatorAlias string, createdAt time.Time) *Event {
	return &Event{
		Title:        strings.TrimSpace(title),
		Currency:     currency,
		Amount:       amount,
		Recurrence:   recurrence,
		Status:       StatusOpen,
		CreatorID:    creatorID,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		Participants: []Participant{{UserID: creatorID, Alias: creatorAlias, Fraction: 1}},
		Attachments:  []Attachment{},
		Period:       createdAt.Format(PeriodLayout),
	}
}

// Validate checks the caller-supplied attributes.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return InvalidArgument("titulo is required")
	}
	if utf8.RuneCountInString(e.Title) > MaxTitleLength {
		return InvalidArgument("titulo must be at most %d characters", MaxTitleLength)
	}
	if !e.Amount.IsPositive() {
		return InvalidArgument("monto must be positive")
	}
	if !e.Amount.Equal(e.Amount.Round(2)) {
		return InvalidArgument("monto must have at most 2 decimals")
	}
	if e.Amount.GreaterThanOrEqual(maxAmount) {
		return InvalidArgument("monto must be less than %s", maxAmount)
	}
	if !e.Currency.Valid() {
		return InvalidArgument("moneda %q is not supported", e.Currency)
	}
	if !e.Recurrence.Valid() {
		return InvalidArgument("repeticion %q is not supported", e.Recurrence)
	}
	if e.ExpectedParticipants != nil && *e.ExpectedParticipants < 1 {
		return InvalidArgument("participantes_definidos must be at least 1")
	}
	return nil
}

// maxAmount is the first value that does not fit the stored NUMERIC(14,2).
var maxAmount = decimal.New(1, 12)

// ValidAmount reports whether f can be used as an event amount.
func ValidAmount(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// HasParticipant reports whether userID is one of the event's participants.
func (e *Event) HasParticipant(userID string) bool {
	for _, p := range e.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// EffectivePayer is the explicit payer, or the creator when none was set.
func (e *Event) EffectivePayer() string {
	if e.PayerID != "" {
		return e.PayerID
	}
	return e.CreatorID
}

// Share is the amount owed by p, rounded to cents.
func (e *Event) Share(p Participant) decimal.Decimal {
	return e.Amount.Mul(decimal.NewFromFloat(p.Fraction)).Round(2)
}

// SplitEqually returns a copy of participants with every fraction set to 1/n.
func SplitEqually(participants []Participant) []Participant {
	out := make([]Participant, len(participants))
	if len(participants) == 0 {
		return out
	}
	fraction := 1 / float64(len(participants))
	for i, p := range participants {
		p.Fraction = fraction
		out[i] = p
	}
	return out
}

// EventRepository is the Ledger Store port for events.
type EventRepository interface {
	// Create persists the event with its participants. e.ID must be set.
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// Close moves an open event to closed. It fails with ErrInvalidState when
	// the event is not open, so only one writer observes the open->closed edge.
	// The stored payer is payerID, or the creator when payerID is empty.
	Close(ctx context.Context, id, payerID, paymentMethod string, paidAt time.Time) (*Event, error)
	// Reopen is the compensating write of a failed close: status back to open,
	// payer and payment timestamp cleared, and any settlement applied for the
	// event reverted together with its marker, in one transaction.
	Reopen(ctx context.Context, id string) error
	// ClaimSuccessor records nextID as the spawned successor if none is set yet.
	ClaimSuccessor(ctx context.Context, id, nextID string) (bool, error)
	ReleaseSuccessor(ctx context.Context, id, nextID string) error
	Delete(ctx context.Context, id string) error
	CountAttachments(ctx context.Context, id string) (int, error)
}

// EventService defines the callable operations on events.
type EventService interface {
	CreateEvent(ctx context.Context, req CreateEventInput) (*Event, error)
	GetEvent(ctx context.Context, eventID, callerID string) (*Event, error)
	CloseEvent(ctx context.Context, eventID, callerID, payerID, paymentMethod string) (*Event, error)
	// HandleEventWrite reacts to a stored change of an event. Only the
	// open->closed edge has effects; a failure rolls the event back to open.
	HandleEventWrite(ctx context.Context, before, after *Event) error
	SpawnNext(ctx context.Context, original *Event) (*Event, error)
}

// InvitationPolicy sets the limits of generated invitations.
type InvitationPolicy struct {
	MaxUses      int           `yaml:"max_uses"`
	RecurringTTL time.Duration `yaml:"recurring_ttl"`
}

// DefaultInvitationPolicy: 100 uses, recurring invitations expire after 30 days.
func DefaultInvitationPolicy() InvitationPolicy {
	return InvitationPolicy{MaxUses: 100, RecurringTTL: 30 * 24 * time.Hour}
}

// CreateEventInput carries the caller-supplied fields of a new event.
type CreateEventInput struct {
	CreatorID            string
	Title                string
	Amount               decimal.Decimal
	Currency             Currency
	Recurrence           Recurrence
	PaymentMethod        string
	DueAt                *time.Time
	Detail               string
	ExpectedParticipants *int
}

// DebtorShares lists what every participant other than the effective payer
// owes, skipping zero shares.
func (e *Event) DebtorShares() []Share {
	payer := e.EffectivePayer()
	shares := make([]Share, 0, len(e.Participants))
	for _, p := range e.Participants {
		if p.UserID == payer {
			continue
		}
		amount := e.Share(p)
		if amount.IsZero() {
			continue
		}
		shares = append(shares, Share{UserID: p.UserID, Amount: amount})
	}
	return shares
}
