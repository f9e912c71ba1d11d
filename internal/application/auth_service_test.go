package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(users *userStoreStub, sessions *sessionRepositoryStub, now time.Time, legacyCode string) *AuthService {
	return NewAuthService(users, sessions, AuthOptions{
		IDGenerator:     sequence("id-1", "id-2", "id-3", "id-4"),
		TokenGenerator:  sequence("token-1", "token-2"),
		Now:             fixedClock(now),
		SessionTTL:      time.Hour,
		LegacyAdminCode: legacyCode,
		HashPassword:    plainHasher,
		VerifyPassword:  plainVerifier,
	})
}

func TestAuthService_SignUp(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("creates regular accounts with normalized email", func(t *testing.T) {
		t.Parallel()

		users := newUserStoreStub()
		svc := newTestAuthService(users, newSessionRepositoryStub(), now, "")

		user, err := svc.SignUp(context.Background(), SignUpParams{
			Name:      "  Hanako ",
			Email:     " Hanako@Example.com ",
			Password:  "password1",
			AdminCode: "ADMIN123",
		})
		require.NoError(t, err)
		assert.Equal(t, "id-1", user.ID)
		assert.Equal(t, "Hanako", user.Name)
		assert.Equal(t, "hanako@example.com", user.Email)
		assert.False(t, user.IsAdmin, "admin code is ignored unless the legacy path is enabled")
		assert.Equal(t, now, user.CreatedAt)
		assert.Equal(t, "plain:password1", users.hashes["id-1"])
	})

	t.Run("legacy admin code elevates only on exact match", func(t *testing.T) {
		t.Parallel()

		svc := newTestAuthService(newUserStoreStub(), newSessionRepositoryStub(), now, "ADMIN123")
		require.True(t, svc.LegacyAdminCodeEnabled())

		admin, err := svc.SignUp(context.Background(), SignUpParams{Email: "a@example.com", Password: "password1", AdminCode: "ADMIN123"})
		require.NoError(t, err)
		assert.True(t, admin.IsAdmin)

		regular, err := svc.SignUp(context.Background(), SignUpParams{Email: "b@example.com", Password: "password1", AdminCode: "admin123"})
		require.NoError(t, err)
		assert.False(t, regular.IsAdmin)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		t.Parallel()

		svc := newTestAuthService(newUserStoreStub(), newSessionRepositoryStub(), now, "")

		_, err := svc.SignUp(context.Background(), SignUpParams{Email: "not-an-email", Password: "short"})
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.FieldErrors, "email")
		assert.Contains(t, vErr.FieldErrors, "password")
	})

	t.Run("maps duplicate email", func(t *testing.T) {
		t.Parallel()

		users := newUserStoreStub()
		users.seed(User{ID: "existing", Email: "taken@example.com"}, "plain:x")
		svc := newTestAuthService(users, newSessionRepositoryStub(), now, "")

		_, err := svc.SignUp(context.Background(), SignUpParams{Email: "TAKEN@example.com", Password: "password1"})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestAuthService_ProvisionAdmin(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(newUserStoreStub(), newSessionRepositoryStub(), time.Now(), "")

	user, err := svc.ProvisionAdmin(context.Background(), ProvisionAdminParams{Name: "Ops", Email: "ops@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	_, err = svc.ProvisionAdmin(context.Background(), ProvisionAdminParams{Email: "ops@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("issues sessions for valid credentials", func(t *testing.T) {
		t.Parallel()

		users := newUserStoreStub()
		users.seed(User{ID: "user-1", Email: "user@example.com"}, "plain:secret123")
		sessions := newSessionRepositoryStub()
		sessions.seed(Session{Token: "stale", ExpiresAt: now.Add(-time.Minute)})
		svc := newTestAuthService(users, sessions, now, "")

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "User@example.com", Password: "secret123"})
		require.NoError(t, err)
		assert.Equal(t, "user-1", result.User.ID)
		assert.Equal(t, "token-1", result.Session.Token)
		assert.Equal(t, now.Add(time.Hour), result.Session.ExpiresAt)
		require.Len(t, sessions.deleteCalls, 1)
		assert.True(t, sessions.deleteCalls[0].Equal(now))

		_, err = sessions.GetSession(context.Background(), "stale")
		assert.Error(t, err, "expired sessions are pruned on sign-in")
	})

	t.Run("unknown email and wrong password look the same", func(t *testing.T) {
		t.Parallel()

		users := newUserStoreStub()
		users.seed(User{ID: "user-1", Email: "user@example.com"}, "plain:secret123")
		svc := newTestAuthService(users, newSessionRepositoryStub(), now, "")

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "nobody@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = svc.Authenticate(context.Background(), AuthenticateParams{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()

		users := newUserStoreStub()
		users.seed(User{ID: "user-1", Email: "user@example.com"}, "plain:secret123")
		sessions := newSessionRepositoryStub()
		expected := errors.New("boom")
		sessions.createErr = expected
		svc := newTestAuthService(users, sessions, now, "")

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, expected)
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	revokedAt := now.Add(-time.Minute)

	users := newUserStoreStub()
	users.seed(User{ID: "admin-1", IsAdmin: true}, "")
	sessions := newSessionRepositoryStub()
	sessions.seed(Session{Token: "live", UserID: "admin-1", ExpiresAt: now.Add(time.Hour)})
	sessions.seed(Session{Token: "expired", UserID: "admin-1", ExpiresAt: now})
	sessions.seed(Session{Token: "revoked", UserID: "admin-1", ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt})
	sessions.seed(Session{Token: "orphan", UserID: "gone", ExpiresAt: now.Add(time.Hour)})

	svc := newTestAuthService(users, sessions, now, "")

	principal, err := svc.ValidateSession(context.Background(), " live ")
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "admin-1", IsAdmin: true}, principal)

	cases := map[string]error{
		"":        ErrUnauthorized,
		"missing": ErrUnauthorized,
		"expired": ErrSessionExpired,
		"revoked": ErrSessionRevoked,
		"orphan":  ErrUnauthorized,
	}
	for token, want := range cases {
		_, err := svc.ValidateSession(context.Background(), token)
		assert.ErrorIs(t, err, want, "token %q", token)
	}
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	users := newUserStoreStub()
	users.seed(User{ID: "user-1"}, "")
	sessions := newSessionRepositoryStub()
	sessions.seed(Session{Token: "live", UserID: "user-1", ExpiresAt: now.Add(time.Hour)})
	svc := newTestAuthService(users, sessions, now, "")

	require.NoError(t, svc.RevokeSession(context.Background(), "live"))
	_, err := svc.ValidateSession(context.Background(), "live")
	assert.ErrorIs(t, err, ErrSessionRevoked)

	assert.ErrorIs(t, svc.RevokeSession(context.Background(), ""), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.RevokeSession(context.Background(), "unknown"), ErrInvalidCredentials)
}

func TestAuthService_Profile(t *testing.T) {
	t.Parallel()

	users := newUserStoreStub()
	users.seed(User{ID: "user-1", Name: "Taro", Phone: "090"}, "")
	svc := newTestAuthService(users, newSessionRepositoryStub(), time.Now(), "")

	user, err := svc.Profile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Taro", user.Name)

	_, err = svc.Profile(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	var nilSvc *AuthService
	_, err = nilSvc.Profile(context.Background(), "user-1")
	assert.Error(t, err)
}
