package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by services, repositories and the HTTP layer.
// Callers match them with errors.Is; messages are safe to show to clients.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidState        = errors.New("invalid state")
	ErrAlreadyMember       = errors.New("already a participant")
	ErrInvitationExpired   = errors.New("invitation expired")
	ErrInvitationExhausted = errors.New("invitation usage limit reached")
	ErrStorageFailure      = errors.New("storage failure")

	// ErrAlreadySettled is returned when an event's balances were already applied.
	ErrAlreadySettled = errors.New("event already settled")
)

// InvalidArgument wraps ErrInvalidArgument with a field-level message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// InvalidState wraps ErrInvalidState with a message.
func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// StorageFailure marks err as a store failure so it can be matched with
// errors.Is(err, ErrStorageFailure) while keeping the driver error in the chain.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}
