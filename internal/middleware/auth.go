package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/auth"
	"github.com/rpattn/movementcontrol/internal/domain"
)

// TokenFromRequest reads the session token from the cookie or, failing that,
// from an "Authorization: Bearer" header.
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware attaches the authenticated user to the request context when
// a valid token is presented. Anonymous requests pass through unchanged.
func AuthMiddleware(authenticator *auth.Authenticator, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			c.Next()
			return
		}
		user, err := authenticator.Authenticate(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Request = c.Request.WithContext(auth.ContextWithUser(c.Request.Context(), user))
		case errors.Is(err, domain.ErrUnauthenticated):
			c.SetCookie(cookieName, "", -1, "/", "", false, true)
		default:
			logger.Error("failed to authenticate request", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.Next()
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.ActorFromContext(c.Request.Context()) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthenticated.Error()})
			return
		}
		c.Next()
	}
}
