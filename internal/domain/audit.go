package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audit entry types.
const (
	AuditRejected          = "rejected"
	AuditEventClosed       = "event_closed"
	AuditEventRolledBack   = "event_rolled_back"
	AuditParticipantJoined = "participant_joined"
)

// AuditEntry is an append-only record of something the core decided.
type AuditEntry struct {
	ID        uuid.UUID         `json:"id"`
	Type      string            `json:"type"`
	Data      any               `json:"data,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type AuditOption func(*AuditEntry)

func WithAuditData(data any) AuditOption {
	return func(e *AuditEntry) {
		e.Data = data
	}
}

func WithAuditMetadata(key, value string) AuditOption {
	return func(e *AuditEntry) {
		e.Metadata[key] = value
	}
}

func NewAuditEntry(entryType string, at time.Time, opts ...AuditOption) AuditEntry {
	e := AuditEntry{
		ID:        uuid.New(),
		Type:      entryType,
		Metadata:  make(map[string]string),
		CreatedAt: at,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Save(ctx context.Context, e AuditEntry) error
}

// AuditLogger records entries without blocking the caller. Failures are
// logged, never returned.
type AuditLogger interface {
	Log(e AuditEntry)
}
