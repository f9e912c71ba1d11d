package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/example/akiya-reservations/internal/application"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"

	ginPrincipalKey    = "akiya.principal"
	ginSessionTokenKey = "akiya.session_token"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

func setPrincipal(c *gin.Context, token string, principal application.Principal) {
	c.Set(ginPrincipalKey, principal)
	c.Set(ginSessionTokenKey, token)
	c.Request = c.Request.WithContext(ContextWithPrincipal(c.Request.Context(), principal))
}

func principalFrom(c *gin.Context) (application.Principal, bool) {
	value, ok := c.Get(ginPrincipalKey)
	if !ok {
		return application.Principal{}, false
	}
	principal, ok := value.(application.Principal)
	return principal, ok
}

// sessionTokenFrom returns the validated session token, or "" for anonymous requests.
func sessionTokenFrom(c *gin.Context) string {
	return c.GetString(ginSessionTokenKey)
}
