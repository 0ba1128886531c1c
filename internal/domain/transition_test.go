package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventWith(status Status, recurrence Recurrence) *Event {
	e := NewEvent("Cena", CurrencyARS, decimal.NewFromInt(90), recurrence, "u1", "u1", time.Now())
	e.ID = "ev-1"
	e.Status = status
	return e
}

func TestPlanTransition(t *testing.T) {
	tests := []struct {
		name        string
		before      *Event
		after       *Event
		wantEffects []Effect
	}{
		{"open to closed one-time", eventWith(StatusOpen, RecurrenceOnce), eventWith(StatusClosed, RecurrenceOnce),
			[]Effect{EffectSettle, EffectNotifyParticipants}},
		{"open to closed monthly", eventWith(StatusOpen, RecurrenceMonthly), eventWith(StatusClosed, RecurrenceMonthly),
			[]Effect{EffectSettle, EffectSpawnNext, EffectNotifyParticipants}},
		{"closed to closed", eventWith(StatusClosed, RecurrenceOnce), eventWith(StatusClosed, RecurrenceOnce), nil},
		{"open to open", eventWith(StatusOpen, RecurrenceOnce), eventWith(StatusOpen, RecurrenceOnce), nil},
		{"closed to open", eventWith(StatusClosed, RecurrenceOnce), eventWith(StatusOpen, RecurrenceOnce), nil},
		{"created closed", nil, eventWith(StatusClosed, RecurrenceOnce), nil},
		{"deleted", eventWith(StatusOpen, RecurrenceOnce), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := PlanTransition(tt.before, tt.after)
			if tt.wantEffects == nil {
				assert.Nil(t, tr)
				return
			}
			require.NotNil(t, tr)
			assert.Equal(t, tt.wantEffects, tr.Effects)
			assert.Same(t, tt.after, tr.After)
		})
	}
}

func TestValidateClose(t *testing.T) {
	e := eventWith(StatusClosed, RecurrenceOnce)
	e.Participants = append(e.Participants, Participant{UserID: "u2", Fraction: 0.5})

	require.NoError(t, ValidateClose(e), "unset payer defaults to creator")

	e.PayerID = "u2"
	require.NoError(t, ValidateClose(e))

	e.PayerID = "stranger"
	require.ErrorIs(t, ValidateClose(e), ErrInvalidState)

	open := eventWith(StatusOpen, RecurrenceOnce)
	require.ErrorIs(t, ValidateClose(open), ErrInvalidState)
}
