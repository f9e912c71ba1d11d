package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Requirement is the access level a page or endpoint demands.
type Requirement int

const (
	RequireSignedIn Requirement = iota
	RequireAdmin
)

// Outcome is the single decision taken for a request.
type Outcome int

const (
	OutcomeRedirectLogin Outcome = iota
	OutcomeDenied
	OutcomeAllow
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRedirectLogin:
		return "redirect_login"
	case OutcomeDenied:
		return "denied"
	case OutcomeAllow:
		return "allow"
	}
	return "unknown"
}

// Alert codes attached to denied decisions.
const (
	AlertNotAdmin         = "not_admin"
	AlertAdminCheckFailed = "admin_check_failed"
)

// GateDecision is the result of Decide. Principal and Profile are only set
// when the session was valid.
type GateDecision struct {
	Outcome   Outcome
	Principal Principal
	Profile   User
	Alert     string
}

// SessionValidator resolves a session token to its principal.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (Principal, error)
}

// ProfileReader loads account profiles.
type ProfileReader interface {
	Profile(ctx context.Context, userID string) (User, error)
}

// AccessGate decides whether a request may proceed.
type AccessGate struct {
	sessions SessionValidator
	profiles ProfileReader
	logger   *logrus.Logger
}

// NewAccessGate constructs a gate over the session validator and profile reader.
func NewAccessGate(sessions SessionValidator, profiles ProfileReader, logger *logrus.Logger) *AccessGate {
	return &AccessGate{sessions: sessions, profiles: profiles, logger: defaultLogger(logger)}
}

// Decide evaluates the token against the requirement once.
func (g *AccessGate) Decide(ctx context.Context, token string, requirement Requirement) (decision GateDecision, err error) {
	if g == nil || g.sessions == nil {
		err = fmt.Errorf("AccessGate is not configured")
		return
	}

	logger := serviceLogger(ctx, g.logger, "AccessGate", "Decide", logrus.Fields{"requirement": int(requirement)})
	defer func() {
		entry := logger.WithField("outcome", decision.Outcome.String())
		if decision.Alert != "" {
			entry = entry.WithField("alert", decision.Alert)
		}
		entry.Debug("access decided")
	}()

	if token == "" {
		decision.Outcome = OutcomeRedirectLogin
		return
	}

	principal, vErr := g.sessions.ValidateSession(ctx, token)
	if vErr != nil {
		if !isSessionRejection(vErr) {
			logger.WithError(vErr).Warn("session validation failed")
		}
		decision.Outcome = OutcomeRedirectLogin
		return
	}
	decision.Principal = principal

	if requirement != RequireAdmin {
		decision.Outcome = OutcomeAllow
		return
	}

	if g.profiles == nil {
		decision.Outcome = OutcomeDenied
		decision.Alert = AlertAdminCheckFailed
		return
	}

	profile, pErr := g.profiles.Profile(ctx, principal.UserID)
	switch {
	case errors.Is(pErr, ErrNotFound):
		decision.Outcome = OutcomeDenied
		decision.Alert = AlertNotAdmin
	case pErr != nil:
		logger.WithError(pErr).Error("admin check failed")
		decision.Outcome = OutcomeDenied
		decision.Alert = AlertAdminCheckFailed
	case !profile.IsAdmin:
		decision.Outcome = OutcomeDenied
		decision.Alert = AlertNotAdmin
	default:
		decision.Outcome = OutcomeAllow
		decision.Profile = profile
		decision.Principal.IsAdmin = true
	}
	return
}

func isSessionRejection(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrSessionRevoked) ||
		errors.Is(err, ErrInvalidCredentials)
}
