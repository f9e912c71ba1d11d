package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/application"
)

type authService interface {
	SignUp(ctx context.Context, params application.SignUpParams) (application.User, error)
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	RevokeSession(ctx context.Context, token string) error
	Profile(ctx context.Context, userID string) (application.User, error)
}

// snapshotForgetter drops per-session catalog state on sign out.
type snapshotForgetter interface {
	Forget(token string)
}

type AuthHandler struct {
	service       authService
	snapshots     snapshotForgetter
	secureCookies bool
	responder     responder
	logger        *logrus.Logger
}

func NewAuthHandler(service authService, snapshots snapshotForgetter, secureCookies bool, logger *logrus.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{
		service:       service,
		snapshots:     snapshots,
		secureCookies: secureCookies,
		responder:     newResponder(base),
		logger:        base,
	}
}

func (h *AuthHandler) log(c *gin.Context, operation string, fields logrus.Fields) *logrus.Entry {
	return handlerLogger(c.Request.Context(), h.logger, "AuthHandler", operation, fields)
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log(c, "SignUp", logrus.Fields{"error_kind": "bad_request"}).WithError(err).Error("failed to decode signup request")
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.service.SignUp(c.Request.Context(), application.SignUpParams{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		AdminCode: req.AdminCode,
	})
	if err != nil {
		h.log(c, "SignUp", logrus.Fields{"error_kind": application.ErrorKind(err)}).WithError(err).Warn("signup rejected")
		h.responder.handleServiceError(c, err)
		return
	}

	h.responder.writeJSON(c, http.StatusCreated, toUserDTO(user))
}

func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log(c, "CreateSession", logrus.Fields{"error_kind": "bad_request"}).WithError(err).Error("failed to decode session request")
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	logger := h.log(c, "CreateSession", logrus.Fields{"email": email})

	result, err := h.service.Authenticate(c.Request.Context(), application.AuthenticateParams{
		Email:    email,
		Password: req.Password,
	})
	if err != nil {
		logger.WithError(err).WithField("error_kind", application.ErrorKind(err)).Error("authentication rejected")
		h.responder.handleServiceError(c, err)
		return
	}

	setSessionCookie(c, result.Session.Token, result.Session.ExpiresAt, h.secureCookies)
	c.Header("X-Session-Token", result.Session.Token)

	logger.WithField("user_id", result.User.ID).Info("user authenticated")

	h.responder.writeJSON(c, http.StatusCreated, loginResponse{
		Token:     result.Session.Token,
		ExpiresAt: result.Session.ExpiresAt.UTC().Format(time.RFC3339Nano),
		Principal: principalDTO{UserID: result.User.ID, IsAdmin: result.User.IsAdmin},
	})
}

func (h *AuthHandler) DeleteCurrentSession(c *gin.Context) {
	token := sessionTokenFrom(c)
	if token == "" {
		token = extractTokenFromRequest(c.Request)
	}
	if token == "" {
		h.log(c, "DeleteCurrentSession", logrus.Fields{"error_kind": "unauthorized"}).Error("missing session token for current session revocation")
		h.responder.writeJSON(c, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   errMissingSessionToken.Error(),
		})
		return
	}

	logger := h.log(c, "DeleteCurrentSession", logrus.Fields{"token_present": true})

	if err := h.service.RevokeSession(c.Request.Context(), token); err != nil {
		logger.WithError(err).WithField("error_kind", application.ErrorKind(err)).Error("failed to revoke session")
		h.responder.handleServiceError(c, err)
		return
	}
	if h.snapshots != nil {
		h.snapshots.Forget(token)
	}

	clearSessionCookie(c, h.secureCookies)
	logger.Info("session revoked for current principal")
	h.responder.writeJSON(c, http.StatusNoContent, nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		h.responder.writeError(c, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	user, err := h.service.Profile(c.Request.Context(), principal.UserID)
	if err != nil {
		h.log(c, "Me", logrus.Fields{"user_id": principal.UserID}).WithError(err).Error("failed to load profile")
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toUserDTO(user))
}

type signUpRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	AdminCode string `json:"admin_code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type principalDTO struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	Principal principalDTO `json:"principal"`
}

type userDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}
