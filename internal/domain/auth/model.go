package auth

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// User is an account that can sign in to the admin panel.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Admin marks a user as allowed to manage content.
type Admin struct {
	ID        string
	Email     string
	Role      string
	CreatedAt time.Time
}

// Session is a signed-in browser or API client. Token is only populated when the
// session is returned to its holder.
type Session struct {
	ID        string
	Token     string
	UserID    string
	UserAgent string
	IPAddress string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
	User      *User
}

// Active reports whether the session can still authenticate requests at now.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Client describes where a sign-in came from.
type Client struct {
	UserAgent string
	IPAddress string
}

// RoleAdmin is the only role granted today.
const RoleAdmin = "admin"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password alike.
	ErrInvalidCredentials = eris.New("invalid email or password")
	// ErrValidation marks account input that cannot be stored.
	ErrValidation = eris.New("invalid account")
)

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
