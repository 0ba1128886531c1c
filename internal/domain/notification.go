package domain

import "context"

// Notification is a push message for one user.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notifier delivers notifications on a best-effort basis: failures are
// logged by the implementation and never returned.
type Notifier interface {
	Send(ctx context.Context, userID string, n Notification)
}

// PushSender delivers a notification to a registered push endpoint.
type PushSender interface {
	Send(ctx context.Context, endpoint string, n Notification) error
}

// PushTokenRepository stores one push endpoint per user.
type PushTokenRepository interface {
	Upsert(ctx context.Context, userID, token string) error
	GetByUserID(ctx context.Context, userID string) (string, error)
}

// PushTokenService registers push endpoints for authenticated users.
type PushTokenService interface {
	Register(ctx context.Context, userID, token string) error
}

// NotificationDispatcher sends notifications and manages their endpoints.
type NotificationDispatcher interface {
	Notifier
	PushTokenService
}
