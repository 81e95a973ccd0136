package auth

import (
	"context"
	"time"
)

// Repository persists users, the admin allow-list and sessions.
// Lookups return nil without an error when no row matches.
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	IsAdmin(ctx context.Context, userID string) (bool, error)
	GrantAdmin(ctx context.Context, admin *Admin) error

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}
