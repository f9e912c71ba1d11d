package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/example/akiya-reservations/internal/application"
	"github.com/example/akiya-reservations/internal/testfixtures"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	*testfixtures.Stack
	router *gin.Engine
}

type serverOption func(*PageOptions)

func withStagedFlow() serverOption {
	return func(opts *PageOptions) { opts.StagedFlow = true }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	stack := testfixtures.NewServiceFactory().NewStack(t)
	services := stack.Services

	pageOpts := PageOptions{
		Auth:         services.Auth,
		Listings:     services.Listings,
		Catalog:      services.Catalog,
		Snapshots:    services.Catalog,
		Reservations: services.Reservations,
		Drafts:       services.Drafts,
	}
	for _, opt := range opts {
		opt(&pageOpts)
	}

	router, err := NewRouter(RouterConfig{
		Gate:         services.Gate,
		Auth:         NewAuthHandler(services.Auth, services.Catalog, false, nil),
		Listings:     NewListingHandler(services.Listings, services.Catalog, nil),
		Reservations: NewReservationHandler(services.Reservations, services.Drafts, nil),
		Pages:        NewPageHandler(pageOpts),
	})
	require.NoError(t, err)

	return &testServer{Stack: stack, router: router}
}

// signIn authenticates a seeded user and returns the session token.
func (s *testServer) signIn(t *testing.T, user testfixtures.UserFixture) string {
	t.Helper()
	result, err := s.Services.Auth.Authenticate(context.Background(), application.AuthenticateParams{
		Email:    user.Email,
		Password: user.Password,
	})
	require.NoError(t, err)
	return result.Session.Token
}

func (s *testServer) seedVisitor(t *testing.T) (testfixtures.UserFixture, string) {
	t.Helper()
	user := s.SeedUser(testfixtures.NewUserFixture())
	return user, s.signIn(t, user)
}

func (s *testServer) seedAdmin(t *testing.T) (testfixtures.UserFixture, string) {
	t.Helper()
	user := s.SeedUser(testfixtures.NewUserFixture(testfixtures.WithUserAdmin(true)))
	return user, s.signIn(t, user)
}

func (s *testServer) doJSON(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(t *testing.T, target, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postForm(t *testing.T, target string, form url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
