package auth

import (
	"context"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Service authenticates editors and answers whether a session belongs to an admin.
type Service interface {
	SignIn(ctx context.Context, email, password string, client Client) (*Session, error)
	SignOut(ctx context.Context, token string) error
	GetSession(ctx context.Context, token string) (*Session, error)
	GetUser(ctx context.Context, token string) (*User, error)
	// IsAdmin never fails: lookup errors are reported and treated as "not an admin".
	IsAdmin(ctx context.Context, token string) bool
	CheckAdmin(ctx context.Context, token string) (bool, error)
	EnsureAdmin(ctx context.Context, email, password string) (*User, error)
}

// Options configures session signing.
type Options struct {
	Secret     []byte
	TTL        time.Duration
	BcryptCost int
}

const minSecretLength = 32

type service struct {
	repo       Repository
	secret     []byte
	ttl        time.Duration
	bcryptCost int
	dummyHash  string
	logger     *logrus.Logger
	sentryHub  *sentry.Hub
	now        func() time.Time
	newID      func() string
}

var _ Service = (*service)(nil)

// NewService wires the auth service with its repository and signing settings.
func NewService(repo Repository, opts Options, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("auth repository is required")
	}
	if len(opts.Secret) < minSecretLength {
		return nil, eris.Errorf("session secret must be at least %d bytes", minSecretLength)
	}
	if opts.TTL <= 0 {
		return nil, eris.New("session ttl must be positive")
	}

	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, eris.Errorf("bcrypt cost %d out of range", cost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("juvenis-placeholder"), cost)
	if err != nil {
		return nil, eris.Wrap(err, "preparing placeholder hash")
	}

	return &service{
		repo:       repo,
		secret:     append([]byte(nil), opts.Secret...),
		ttl:        opts.TTL,
		bcryptCost: cost,
		dummyHash:  string(dummy),
		logger:     logger,
		sentryHub:  hub,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}, nil
}

func (s *service) SignIn(ctx context.Context, email, password string, client Client) (*Session, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, normalized)
	if err != nil {
		s.recordError(logrus.Fields{"email": normalized}, err, "looking up user for sign-in")
		return nil, eris.Wrap(err, "looking up user for sign-in")
	}

	if user == nil {
		// Keep timing comparable to a wrong password.
		verifyPassword(s.dummyHash, password)
		s.logWarn(logrus.Fields{"email": normalized}, "sign-in for unknown email")
		return nil, ErrInvalidCredentials
	}

	if !verifyPassword(user.PasswordHash, password) {
		s.logWarn(logrus.Fields{"user_id": user.ID}, "sign-in with wrong password")
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if removed, err := s.repo.DeleteExpiredSessions(ctx, now); err != nil {
		s.recordError(nil, err, "pruning expired sessions")
	} else if removed > 0 {
		s.logDebug(logrus.Fields{"removed": removed}, "pruned expired sessions")
	}

	session := &Session{
		ID:        s.newID(),
		UserID:    user.ID,
		UserAgent: truncate(strings.TrimSpace(client.UserAgent), 512),
		IPAddress: truncate(strings.TrimSpace(client.IPAddress), 64),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		s.recordError(logrus.Fields{"user_id": user.ID}, err, "creating session")
		return nil, eris.Wrap(err, "creating session")
	}

	token, err := signToken(s.secret, session)
	if err != nil {
		s.recordError(logrus.Fields{"user_id": user.ID}, err, "signing session token")
		return nil, err
	}

	session.Token = token
	session.User = user

	s.logInfo(logrus.Fields{"user_id": user.ID, "session_id": session.ID}, "user signed in")
	return session, nil
}

func (s *service) SignOut(ctx context.Context, token string) error {
	claims := s.claims(token)
	if claims == nil {
		return nil
	}

	if err := s.repo.RevokeSession(ctx, claims.ID, s.now()); err != nil {
		s.recordError(logrus.Fields{"session_id": claims.ID}, err, "revoking session")
		return eris.Wrap(err, "revoking session")
	}

	s.logInfo(logrus.Fields{"user_id": claims.Subject, "session_id": claims.ID}, "user signed out")
	return nil
}

func (s *service) GetSession(ctx context.Context, token string) (*Session, error) {
	claims := s.claims(token)
	if claims == nil {
		return nil, nil
	}

	session, err := s.repo.GetSession(ctx, claims.ID)
	if err != nil {
		s.recordError(logrus.Fields{"session_id": claims.ID}, err, "fetching session")
		return nil, eris.Wrap(err, "fetching session")
	}

	if session == nil || session.UserID != claims.Subject || !session.Active(s.now()) {
		return nil, nil
	}

	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		s.recordError(logrus.Fields{"user_id": session.UserID}, err, "fetching session user")
		return nil, eris.Wrap(err, "fetching session user")
	}
	if user == nil {
		return nil, nil
	}

	session.Token = strings.TrimSpace(token)
	session.User = user
	return session, nil
}

func (s *service) GetUser(ctx context.Context, token string) (*User, error) {
	session, err := s.GetSession(ctx, token)
	if err != nil || session == nil {
		return nil, err
	}
	return session.User, nil
}

func (s *service) CheckAdmin(ctx context.Context, token string) (bool, error) {
	user, err := s.GetUser(ctx, token)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}

	ok, err := s.repo.IsAdmin(ctx, user.ID)
	if err != nil {
		s.recordError(logrus.Fields{"user_id": user.ID}, err, "checking admin allow-list")
		return false, eris.Wrap(err, "checking admin allow-list")
	}
	return ok, nil
}

func (s *service) IsAdmin(ctx context.Context, token string) bool {
	ok, err := s.CheckAdmin(ctx, token)
	if err != nil {
		return false
	}
	return ok
}

// EnsureAdmin creates the user when missing, refreshes a stale password and grants admin.
func (s *service) EnsureAdmin(ctx context.Context, email, password string) (*User, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" || !strings.Contains(normalized, "@") {
		return nil, eris.Wrap(ErrValidation, "a valid email is required")
	}

	user, err := s.repo.GetUserByEmail(ctx, normalized)
	if err != nil {
		s.recordError(logrus.Fields{"email": normalized}, err, "looking up admin user")
		return nil, eris.Wrap(err, "looking up admin user")
	}

	switch {
	case user == nil:
		hash, err := hashPassword(password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user = &User{ID: s.newID(), Email: normalized, PasswordHash: hash, CreatedAt: s.now()}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			s.recordError(logrus.Fields{"email": normalized}, err, "creating admin user")
			return nil, eris.Wrap(err, "creating admin user")
		}
		s.logInfo(logrus.Fields{"user_id": user.ID}, "admin user created")
	case !verifyPassword(user.PasswordHash, password):
		hash, err := hashPassword(password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			s.recordError(logrus.Fields{"user_id": user.ID}, err, "updating admin password")
			return nil, eris.Wrap(err, "updating admin password")
		}
		user.PasswordHash = hash
		s.logInfo(logrus.Fields{"user_id": user.ID}, "admin password updated")
	}

	admin := &Admin{ID: user.ID, Email: user.Email, Role: RoleAdmin, CreatedAt: s.now()}
	if err := s.repo.GrantAdmin(ctx, admin); err != nil {
		s.recordError(logrus.Fields{"user_id": user.ID}, err, "granting admin")
		return nil, eris.Wrap(err, "granting admin")
	}

	return user, nil
}

// claims returns nil for empty, malformed, foreign or expired tokens.
func (s *service) claims(token string) *sessionClaims {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil
	}

	claims, err := parseToken(s.secret, trimmed, s.now)
	if err != nil {
		s.logDebug(logrus.Fields{"error": err.Error()}, "rejected session token")
		return nil
	}
	return claims
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}

func (s *service) logInfo(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).Info(message)
}

func (s *service) logWarn(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).Warn(message)
}

func (s *service) logDebug(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).Debug(message)
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
