package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/persistence"
)

// UserStore exposes the account storage required by the auth service.
type UserStore interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// AuthOptions configures an AuthService. Zero values select defaults.
type AuthOptions struct {
	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	// LegacyAdminCode re-enables signup-time admin elevation by shared code.
	// Empty disables it.
	LegacyAdminCode string
	HashPassword    PasswordHasher
	VerifyPassword  PasswordVerifier
	Logger          *logrus.Logger
}

// AuthService coordinates sign-up, sign-in, and session validation.
type AuthService struct {
	users           UserStore
	sessions        SessionRepository
	idGenerator     func() string
	tokenGenerator  func() string
	now             func() time.Time
	sessionTTL      time.Duration
	legacyAdminCode string
	hashPassword    PasswordHasher
	verifyPassword  PasswordVerifier
	logger          *logrus.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(users UserStore, sessions SessionRepository, opts AuthOptions) *AuthService {
	s := &AuthService{
		users:           users,
		sessions:        sessions,
		idGenerator:     opts.IDGenerator,
		tokenGenerator:  opts.TokenGenerator,
		now:             opts.Now,
		sessionTTL:      opts.SessionTTL,
		legacyAdminCode: strings.TrimSpace(opts.LegacyAdminCode),
		hashPassword:    opts.HashPassword,
		verifyPassword:  opts.VerifyPassword,
		logger:          defaultLogger(opts.Logger),
	}
	if s.idGenerator == nil {
		s.idGenerator = func() string { return "" }
	}
	if s.tokenGenerator == nil {
		s.tokenGenerator = s.idGenerator
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 24 * time.Hour
	}
	if s.hashPassword == nil {
		s.hashPassword = HashPassword
	}
	if s.verifyPassword == nil {
		s.verifyPassword = VerifyPassword
	}
	return s
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, fields logrus.Fields) *logrus.Entry {
	return serviceLogger(ctx, s.logger, "AuthService", operation, fields)
}

// LegacyAdminCodeEnabled reports whether signup may still grant admin rights.
func (s *AuthService) LegacyAdminCodeEnabled() bool {
	return s != nil && s.legacyAdminCode != ""
}

// SignUp creates a regular account. Admin rights are only granted when the
// legacy shared code is enabled and matches.
func (s *AuthService) SignUp(ctx context.Context, params SignUpParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user store not configured")
		return
	}

	params.Name = strings.TrimSpace(params.Name)
	params.Email = normalizeEmail(params.Email)
	params.Phone = strings.TrimSpace(params.Phone)

	logger := s.loggerWith(ctx, "SignUp", logrus.Fields{"email": params.Email})
	defer func() {
		logOutcome(logger.WithField("user_id", user.ID), err, "sign up failed", "user signed up")
	}()

	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}

	isAdmin := s.legacyAdminCode != "" &&
		subtle.ConstantTimeCompare([]byte(strings.TrimSpace(params.AdminCode)), []byte(s.legacyAdminCode)) == 1
	if isAdmin {
		logger.Warn("legacy admin code used to grant administrator rights")
	}

	user, err = s.createUser(ctx, User{Name: params.Name, Email: params.Email, Phone: params.Phone, IsAdmin: isAdmin}, params.Password)
	return
}

// ProvisionAdmin creates an administrator account. It is the out-of-band
// path used by the provision-admin command.
func (s *AuthService) ProvisionAdmin(ctx context.Context, params ProvisionAdminParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user store not configured")
		return
	}

	params.Name = strings.TrimSpace(params.Name)
	params.Email = normalizeEmail(params.Email)

	logger := s.loggerWith(ctx, "ProvisionAdmin", logrus.Fields{"email": params.Email})
	defer func() {
		logOutcome(logger.WithField("user_id", user.ID), err, "admin provisioning failed", "administrator provisioned")
	}()

	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}

	user, err = s.createUser(ctx, User{Name: params.Name, Email: params.Email, IsAdmin: true}, params.Password)
	return
}

func (s *AuthService) createUser(ctx context.Context, user User, password string) (User, error) {
	hash, err := s.hashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user.ID = s.idGenerator()
	user.CreatedAt = now
	user.UpdatedAt = now

	created, err := s.users.CreateUser(ctx, user, hash)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return created, nil
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user store not configured")
		return
	}

	email := normalizeEmail(params.Email)

	logger := s.loggerWith(ctx, "Authenticate", logrus.Fields{"email": email})
	defer func() {
		logOutcome(logger.WithFields(logrus.Fields{
			"user_id":    result.User.ID,
			"session_id": result.Session.ID,
		}), err, "authentication failed", "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.users.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	session := Session{
		ID:        s.idGenerator(),
		UserID:    creds.User.ID,
		Token:     s.tokenGenerator(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if s.sessions != nil {
		if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
			return
		}
		if session, err = s.sessions.CreateSession(ctx, session); err != nil {
			return
		}
	}

	result = AuthenticateResult{User: creds.User, Session: session}
	return
}

// RevokeSession signs a session out.
func (s *AuthService) RevokeSession(ctx context.Context, token string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "RevokeSession", logrus.Fields{"token_provided": trimmed != ""})
	defer func() {
		logOutcome(logger, err, "failed to revoke session", "session revoked")
	}()

	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}
	if _, err = s.sessions.RevokeSession(ctx, trimmed, s.now()); err != nil {
		if isNotFound(err) {
			err = ErrInvalidCredentials
		}
		return
	}
	return nil
}

// ValidateSession verifies that the token belongs to an active session and
// returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil || s.users == nil {
		err = fmt.Errorf("auth repositories not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", logrus.Fields{"token_provided": trimmed != ""})
	defer func() {
		if err != nil {
			logger.WithError(err).WithField("error_kind", ErrorKind(err)).Debug("session rejected")
			return
		}
		logger.WithField("principal_id", principal.UserID).Debug("session validated")
	}()

	if trimmed == "" {
		err = ErrUnauthorized
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, trimmed)
	if err != nil {
		if isNotFound(err) {
			err = ErrUnauthorized
		}
		return
	}

	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.After(s.now()) {
		err = ErrSessionExpired
		return
	}

	var user User
	user, err = s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if isNotFound(err) {
			err = ErrUnauthorized
		}
		return
	}

	principal = Principal{UserID: user.ID, IsAdmin: user.IsAdmin}
	return
}

// Profile returns the account profile for a user id.
func (s *AuthService) Profile(ctx context.Context, userID string) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user store not configured")
		return
	}
	if strings.TrimSpace(userID) == "" {
		err = ErrNotFound
		return
	}

	user, err = s.users.GetUser(ctx, userID)
	if err != nil {
		err = mapUserRepoError(err)
	}
	return
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}

func mapUserRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return singleFieldError("email", "email is invalid")
	}
	return err
}
