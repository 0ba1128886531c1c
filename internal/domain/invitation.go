package domain

import (
	"context"
	"time"
)

// Invitation admits new participants to one event. Token is also its id.
// swagger:model Invitation
type Invitation struct {
	Token     string     `json:"token"`
	EventID   string     `json:"evento_id"`
	CreatorID string     `json:"creador"`
	CreatedAt time.Time  `json:"fecha_creacion"`
	ExpiresAt *time.Time `json:"expira,omitempty"`
	Uses      int        `json:"usos"`
	MaxUses   int        `json:"max_usos"`
}

// Usable returns ErrInvitationExpired or ErrInvitationExhausted when the
// invitation can no longer admit anyone at now.
func (i *Invitation) Usable(now time.Time) error {
	if i.ExpiresAt != nil && !now.Before(*i.ExpiresAt) {
		return ErrInvitationExpired
	}
	if i.Uses >= i.MaxUses {
		return ErrInvitationExhausted
	}
	return nil
}

// JoinRequest is the atomic membership change applied on redemption.
type JoinRequest struct {
	Token       string
	EventID     string
	Participant Participant
	At          time.Time
}

// InvitationRepository is the Ledger Store port for invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	// Redeem increments the usage counter (only while below the cap), appends
	// the participant if absent and resets every fraction to 1/n, all at once.
	// It returns the resulting participants. Failures leave nothing applied:
	// ErrInvitationExpired (expired at req.At), ErrInvitationExhausted,
	// ErrAlreadyMember, ErrInvalidState (event not open) or ErrNotFound.
	Redeem(ctx context.Context, req JoinRequest) ([]Participant, error)
}

// JoinResult summarizes a successful redemption.
type JoinResult struct {
	EventID      string
	Title        string
	Participants int
}

// InvitationService is the Invitation Gate.
type InvitationService interface {
	Redeem(ctx context.Context, token, requesterID string) (*JoinResult, error)
}

// TokenGenerator produces short opaque invitation tokens.
type TokenGenerator interface {
	Generate() (string, error)
}
