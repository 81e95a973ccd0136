package auth

import (
	"time"

	domainauth "juvenis/app/internal/domain/auth"
)

// UserRecord is an account row.
type UserRecord struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Email        string    `gorm:"column:email;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

// TableName defines the table name for user rows.
func (UserRecord) TableName() string {
	return "users"
}

// AdminRecord is an admin allow-list row keyed by user id.
type AdminRecord struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Email     string    `gorm:"column:email;not null"`
	Role      string    `gorm:"column:role;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName defines the table name for admin rows.
func (AdminRecord) TableName() string {
	return "admins"
}

// SessionRecord is a signed-in session; its id is the token jti.
type SessionRecord struct {
	ID        string     `gorm:"column:id;primaryKey"`
	UserID    string     `gorm:"column:user_id;not null"`
	UserAgent string     `gorm:"column:user_agent;not null"`
	IPAddress string     `gorm:"column:ip_address;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
}

// TableName defines the table name for session rows.
func (SessionRecord) TableName() string {
	return "sessions"
}

func (r *UserRecord) toDomain() *domainauth.User {
	return &domainauth.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func (r *SessionRecord) toDomain() *domainauth.Session {
	session := &domainauth.Session{
		ID:        r.ID,
		UserID:    r.UserID,
		UserAgent: r.UserAgent,
		IPAddress: r.IPAddress,
		ExpiresAt: r.ExpiresAt.UTC(),
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.RevokedAt != nil {
		revoked := r.RevokedAt.UTC()
		session.RevokedAt = &revoked
	}
	return session
}
