package domain

import (
	"context"
	"strings"
	"time"
)

// DefaultAlias is used when a user has neither display name nor email.
const DefaultAlias = "Usuario"

// User is the profile of an authenticated identity. Profiles are owned by the
// identity provider; this service only reads them.
// swagger:model User
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"nombre"`
	CreatedAt   time.Time `json:"fecha_creacion"`
}

// Alias resolves the display alias: display name, else the local part of the
// email, else DefaultAlias. A nil user yields DefaultAlias.
func (u *User) Alias() string {
	if u == nil {
		return DefaultAlias
	}
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(strings.TrimSpace(u.Email), "@"); ok && local != "" {
		return local
	}
	return DefaultAlias
}

// UserRepository reads user profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// TokenIssuer issues bearer tokens for an identity.
type TokenIssuer interface {
	Issue(userID, email string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a bearer token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}
