package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/akiya-reservations/internal/application"
	"github.com/example/akiya-reservations/internal/logging"
)

type mockGate struct {
	mock.Mock
}

func (m *mockGate) Decide(ctx context.Context, token string, requirement application.Requirement) (application.GateDecision, error) {
	args := m.Called(ctx, token, requirement)
	return args.Get(0).(application.GateDecision), args.Error(1)
}

func gatedEngine(handler gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.GET("/protected", handler, func(c *gin.Context) {
		principal, _ := principalFrom(c)
		c.String(http.StatusOK, principal.UserID+"|"+sessionTokenFrom(c))
	})
	return engine
}

func requestWithCookie(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	}
	return req
}

func TestRequireAPI(t *testing.T) {
	t.Run("missing token never reaches the gate", func(t *testing.T) {
		gate := new(mockGate)
		rec := httptest.NewRecorder()
		gatedEngine(RequireAPI(gate, application.RequireSignedIn, nil)).ServeHTTP(rec, requestWithCookie(""))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "AUTH_SESSION_MISSING")
		gate.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gate failure is a server error", func(t *testing.T) {
		gate := new(mockGate)
		gate.On("Decide", mock.Anything, "tok", application.RequireAdmin).
			Return(application.GateDecision{}, errors.New("store offline")).Once()

		rec := httptest.NewRecorder()
		gatedEngine(RequireAPI(gate, application.RequireAdmin, nil)).ServeHTTP(rec, requestWithCookie("tok"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		gate.AssertExpectations(t)
	})

	t.Run("admin check failure is forbidden with its own message", func(t *testing.T) {
		gate := new(mockGate)
		gate.On("Decide", mock.Anything, "tok", application.RequireAdmin).
			Return(application.GateDecision{Outcome: application.OutcomeDenied, Alert: application.AlertAdminCheckFailed}, nil).Once()

		rec := httptest.NewRecorder()
		gatedEngine(RequireAPI(gate, application.RequireAdmin, nil)).ServeHTTP(rec, requestWithCookie("tok"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "管理者権限の確認中にエラーが発生しました")
	})

	t.Run("expired session asks for login", func(t *testing.T) {
		gate := new(mockGate)
		gate.On("Decide", mock.Anything, "tok", application.RequireSignedIn).
			Return(application.GateDecision{Outcome: application.OutcomeRedirectLogin}, nil).Once()

		rec := httptest.NewRecorder()
		gatedEngine(RequireAPI(gate, application.RequireSignedIn, nil)).ServeHTTP(rec, requestWithCookie("tok"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "AUTH_SESSION_EXPIRED")
	})

	t.Run("allowed requests carry the principal", func(t *testing.T) {
		gate := new(mockGate)
		gate.On("Decide", mock.Anything, "tok", application.RequireSignedIn).
			Return(application.GateDecision{Outcome: application.OutcomeAllow, Principal: application.Principal{UserID: "user-1"}}, nil).Once()

		rec := httptest.NewRecorder()
		gatedEngine(RequireAPI(gate, application.RequireSignedIn, nil)).ServeHTTP(rec, requestWithCookie("tok"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1|tok", rec.Body.String())
	})
}

func TestRequirePage(t *testing.T) {
	cases := []struct {
		name     string
		decision application.GateDecision
		err      error
		location string
	}{
		{
			name:     "gate failure",
			err:      errors.New("store offline"),
			location: "/?alert=admin_check_failed",
		},
		{
			name:     "not an administrator",
			decision: application.GateDecision{Outcome: application.OutcomeDenied, Alert: application.AlertNotAdmin},
			location: "/?alert=not_admin",
		},
		{
			name:     "signed out",
			decision: application.GateDecision{Outcome: application.OutcomeRedirectLogin},
			location: "/login?alert=login_first",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := new(mockGate)
			gate.On("Decide", mock.Anything, "tok", application.RequireAdmin).Return(tc.decision, tc.err).Once()

			rec := httptest.NewRecorder()
			gatedEngine(RequirePage(gate, application.RequireAdmin, "login_first", nil)).ServeHTTP(rec, requestWithCookie("tok"))

			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tc.location, rec.Header().Get("Location"))
			gate.AssertExpectations(t)
		})
	}
}

func TestOptionalSession_IgnoresRejectedTokens(t *testing.T) {
	gate := new(mockGate)
	gate.On("Decide", mock.Anything, "stale", application.RequireSignedIn).
		Return(application.GateDecision{Outcome: application.OutcomeRedirectLogin}, nil).Once()

	rec := httptest.NewRecorder()
	gatedEngine(OptionalSession(gate)).ServeHTTP(rec, requestWithCookie("stale"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "|", rec.Body.String())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	engine := gin.New()
	engine.Use(RequestLogger(logger))
	engine.GET("/ping", func(c *gin.Context) {
		require.NotNil(t, logging.FromContext(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"msg":"request started"`)
	assert.Contains(t, out, `"msg":"request completed"`)
	assert.Contains(t, out, `"status":204`)
	assert.Contains(t, out, `"path":"/ping"`)
}

func TestExtractTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, extractTokenFromRequest(req))
	assert.Empty(t, extractTokenFromRequest(nil))

	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", extractTokenFromRequest(req))

	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", extractTokenFromRequest(req), "the header wins over the cookie")
}

func TestAlertURL(t *testing.T) {
	assert.Equal(t, "/login", alertURL("/login", ""))
	assert.Equal(t, "/login?alert=login_required", alertURL("/login", "login_required"))
	assert.Equal(t, "/admin?kind=museum&alert=museum_added", alertURL("/admin?kind=museum", "museum_added"))
}

func TestTranslateValidationMessage(t *testing.T) {
	assert.Equal(t, "パスワードは 8 文字以上で指定してください。", translateValidationMessage("password must be at least 8 characters"))
	assert.Equal(t, "緯度は -90 から 90 の範囲で指定してください。", translateValidationMessage("lat must be at most 90"))
	assert.Equal(t, "something else", translateValidationMessage("something else"))
}
