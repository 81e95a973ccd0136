package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainauth "juvenis/app/internal/domain/auth"
)

// Repository persists users, admins and sessions using a Gorm database connection.
type Repository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*Repository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &Repository{db: db, logger: logger}, nil
}

var _ domainauth.Repository = (*Repository)(nil)

// GetUserByEmail matches the email case-insensitively and returns nil when not found.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domainauth.User, error) {
	var record UserRecord
	err := r.db.WithContext(ctx).First(&record, "email = ? COLLATE NOCASE", strings.TrimSpace(email)).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"email": email}, err, "fetching user by email")
		return nil, eris.Wrap(err, "fetching user by email")
	}
	return record.toDomain(), nil
}

// GetUserByID returns the user or nil when not found.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domainauth.User, error) {
	var record UserRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"user_id": id}, err, "fetching user")
		return nil, eris.Wrapf(err, "fetching user: %s", id)
	}
	return record.toDomain(), nil
}

// CreateUser inserts an account. It returns an error when the email already exists.
func (r *Repository) CreateUser(ctx context.Context, user *domainauth.User) error {
	if user == nil {
		return eris.New("user is nil")
	}

	record := &UserRecord{
		ID:           user.ID,
		Email:        domainauth.NormalizeEmail(user.Email),
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UTC(),
		UpdatedAt:    user.CreatedAt.UTC(),
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			dupErr := eris.Errorf("user with email %s already exists", record.Email)
			r.logError(logrus.Fields{"email": record.Email}, dupErr, "creating user with duplicate email")
			return dupErr
		}
		r.logError(logrus.Fields{"email": record.Email}, err, "creating user")
		return eris.Wrap(err, "creating user")
	}
	return nil
}

// UpdatePasswordHash replaces a user's password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	err := r.db.WithContext(ctx).Model(&UserRecord{}).Where("id = ?", userID).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		r.logError(logrus.Fields{"user_id": userID}, err, "updating password hash")
		return eris.Wrapf(err, "updating password hash: %s", userID)
	}
	return nil
}

// IsAdmin reports whether the user is on the admin allow-list.
func (r *Repository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&AdminRecord{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		r.logError(logrus.Fields{"user_id": userID}, err, "checking admin allow-list")
		return false, eris.Wrap(err, "checking admin allow-list")
	}
	return count > 0, nil
}

// GrantAdmin adds the user to the allow-list, refreshing email and role when already present.
func (r *Repository) GrantAdmin(ctx context.Context, admin *domainauth.Admin) error {
	if admin == nil {
		return eris.New("admin is nil")
	}

	record := &AdminRecord{
		ID:        admin.ID,
		Email:     admin.Email,
		Role:      admin.Role,
		CreatedAt: admin.CreatedAt.UTC(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "role"}),
	}).Create(record).Error
	if err != nil {
		r.logError(logrus.Fields{"user_id": admin.ID}, err, "granting admin")
		return eris.Wrapf(err, "granting admin: %s", admin.ID)
	}
	return nil
}

// CreateSession inserts a session row.
func (r *Repository) CreateSession(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return eris.New("session is nil")
	}

	record := &SessionRecord{
		ID:        session.ID,
		UserID:    session.UserID,
		UserAgent: session.UserAgent,
		IPAddress: session.IPAddress,
		ExpiresAt: session.ExpiresAt.UTC(),
		CreatedAt: session.CreatedAt.UTC(),
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		r.logError(logrus.Fields{"user_id": session.UserID}, err, "creating session")
		return eris.Wrap(err, "creating session")
	}
	return nil
}

// GetSession returns the session or nil when not found.
func (r *Repository) GetSession(ctx context.Context, id string) (*domainauth.Session, error) {
	var record SessionRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"session_id": id}, err, "fetching session")
		return nil, eris.Wrapf(err, "fetching session: %s", id)
	}
	return record.toDomain(), nil
}

// RevokeSession marks the session revoked; unknown or already revoked sessions are left alone.
func (r *Repository) RevokeSession(ctx context.Context, id string, revokedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&SessionRecord{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", revokedAt.UTC()).Error
	if err != nil {
		r.logError(logrus.Fields{"session_id": id}, err, "revoking session")
		return eris.Wrapf(err, "revoking session: %s", id)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired at or before the cutoff.
func (r *Repository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", before.UTC()).Delete(&SessionRecord{})
	if result.Error != nil {
		r.logError(nil, result.Error, "deleting expired sessions")
		return 0, eris.Wrap(result.Error, "deleting expired sessions")
	}
	return result.RowsAffected, nil
}

func (r *Repository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
