package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/application"
	"github.com/example/akiya-reservations/internal/logging"
)

const sessionCookieName = "session_token"

// Gate decides whether a session token satisfies a requirement.
type Gate interface {
	Decide(ctx context.Context, token string, requirement application.Requirement) (application.GateDecision, error)
}

// RequestLogger attaches a request scoped logger and logs start and completion.
func RequestLogger(base *logrus.Logger) gin.HandlerFunc {
	base = defaultLogger(base)
	var counter atomic.Uint64

	return func(c *gin.Context) {
		id := counter.Add(1)
		logger := base.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})

		c.Request = c.Request.WithContext(logging.ContextWithLogger(c.Request.Context(), logger))
		start := time.Now()
		logger.Info("request started")
		c.Next()
		logger.WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("request completed")
	}
}

// OptionalSession records the principal when a valid session accompanies the
// request and lets anonymous requests through untouched.
func OptionalSession(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractTokenFromRequest(c.Request)
		if token == "" || gate == nil {
			c.Next()
			return
		}
		decision, err := gate.Decide(c.Request.Context(), token, application.RequireSignedIn)
		if err == nil && decision.Outcome == application.OutcomeAllow {
			setPrincipal(c, token, decision.Principal)
		}
		c.Next()
	}
}

// RequireAPI rejects API requests that do not meet requirement with 401 or 403 JSON.
func RequireAPI(gate Gate, requirement application.Requirement, logger *logrus.Logger) gin.HandlerFunc {
	responder := newResponder(logger)

	return func(c *gin.Context) {
		token := extractTokenFromRequest(c.Request)
		if token == "" {
			responder.writeJSON(c, http.StatusUnauthorized, errorResponse{
				ErrorCode: "AUTH_SESSION_MISSING",
				Message:   errMissingSessionToken.Error(),
			})
			c.Abort()
			return
		}

		decision, err := gate.Decide(c.Request.Context(), token, requirement)
		if err != nil {
			responder.loggerFor(c).WithError(err).Error("session check failed")
			responder.writeJSON(c, http.StatusInternalServerError, errorResponse{Message: "セッション検証中にエラーが発生しました。"})
			c.Abort()
			return
		}

		switch decision.Outcome {
		case application.OutcomeAllow:
			setPrincipal(c, token, decision.Principal)
			c.Next()
		case application.OutcomeDenied:
			message := "この操作を実行する権限がありません。"
			if decision.Alert == application.AlertAdminCheckFailed {
				message = "管理者権限の確認中にエラーが発生しました。しばらくしてから再度お試しください。"
			}
			responder.writeJSON(c, http.StatusForbidden, errorResponse{ErrorCode: "AUTH_FORBIDDEN", Message: message})
			c.Abort()
		default:
			responder.writeJSON(c, http.StatusUnauthorized, errorResponse{
				ErrorCode: "AUTH_SESSION_EXPIRED",
				Message:   "セッションが無効です。再度ログインしてください。",
			})
			c.Abort()
		}
	}
}

// RequirePage redirects page requests that do not meet requirement. Signed
// out visitors go to /login, carrying loginAlert when set. Denied visitors
// go to the catalog with the decision's alert code.
func RequirePage(gate Gate, requirement application.Requirement, loginAlert string, logger *logrus.Logger) gin.HandlerFunc {
	base := defaultLogger(logger)

	return func(c *gin.Context) {
		token := extractTokenFromRequest(c.Request)
		decision, err := gate.Decide(c.Request.Context(), token, requirement)
		if err != nil {
			handlerLogger(c.Request.Context(), base, "RequirePage", "", nil).WithError(err).Error("session check failed")
			c.Redirect(http.StatusFound, alertURL("/", application.AlertAdminCheckFailed))
			c.Abort()
			return
		}

		switch decision.Outcome {
		case application.OutcomeAllow:
			setPrincipal(c, token, decision.Principal)
			c.Next()
		case application.OutcomeDenied:
			c.Redirect(http.StatusFound, alertURL("/", decision.Alert))
			c.Abort()
		default:
			c.Redirect(http.StatusFound, alertURL("/login", loginAlert))
			c.Abort()
		}
	}
}

func alertURL(path, alert string) string {
	if alert == "" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + url.Values{"alert": {alert}}.Encode()
}

func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, prefix))
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func setSessionCookie(c *gin.Context, token string, expires time.Time, secure bool) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(c.Writer, cookie)
}

func clearSessionCookie(c *gin.Context, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
