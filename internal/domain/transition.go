package domain

// Effect is one step the lifecycle controller applies after a close.
type Effect string

const (
	EffectSettle             Effect = "settle"
	EffectSpawnNext          Effect = "spawn_next"
	EffectNotifyParticipants Effect = "notify_participants"
)

// Transition is the open->closed edge of one event and the effects it
// requires, in application order.
type Transition struct {
	Before  *Event
	After   *Event
	Effects []Effect
}

// PlanTransition inspects a write to an event. It returns nil unless the
// write moved the event from open to closed.
func PlanTransition(before, after *Event) *Transition {
	if before == nil || after == nil {
		return nil
	}
	if before.Status != StatusOpen || after.Status != StatusClosed {
		return nil
	}
	effects := []Effect{EffectSettle}
	if after.Recurrence == RecurrenceMonthly {
		effects = append(effects, EffectSpawnNext)
	}
	effects = append(effects, EffectNotifyParticipants)
	return &Transition{Before: before, After: after, Effects: effects}
}

// ValidateClose checks that the payer of a closed event is a participant.
// An unset payer defaults to the creator.
func ValidateClose(e *Event) error {
	if e.Status != StatusClosed {
		return InvalidState("event %s is %s", e.ID, e.Status)
	}
	payer := e.EffectivePayer()
	if !e.HasParticipant(payer) {
		return InvalidState("payer %s is not a participant of event %s", payer, e.ID)
	}
	return nil
}
