package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kartikbazzad/bunbase/lookup/internal/auth"
	"github.com/kartikbazzad/bunbase/lookup/internal/authz"
	apperrors "github.com/kartikbazzad/bunbase/lookup/pkg/errors"
	"github.com/kartikbazzad/bunbase/lookup/pkg/logger"
)

const (
	userContextName = "user"

	// SessionCookieName is the cookie holding the session token.
	SessionCookieName = "session_token"

	// LoginPage is where unauthenticated page requests are sent.
	LoginPage = "/login.html"
)

// SessionValidator resolves a session token to a principal.
type SessionValidator interface {
	Validate(token string) (auth.Principal, error)
}

// AuthMiddleware validates the session and sets the user in the Gin context.
// API requests without a valid session get 401 JSON.
func AuthMiddleware(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := sessions.Validate(GetSessionTokenFromContext(c))
		if err != nil {
			abortWithError(c, apperrors.Unauthorized("unauthorized"))
			return
		}
		c.Set(userContextName, user)
		c.Next()
	}
}

// PageAuthMiddleware is AuthMiddleware for HTML pages: it redirects to the
// login page instead of returning JSON.
func PageAuthMiddleware(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := sessions.Validate(GetSessionTokenFromContext(c))
		if err != nil {
			c.Redirect(http.StatusFound, LoginPage)
			c.Abort()
			return
		}
		c.Set(userContextName, user)
		c.Next()
	}
}

// RequirePermission allows the request only when the session user's role may
// perform action on resource. It must run after AuthMiddleware.
func RequirePermission(enforcer *authz.Enforcer, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := RequireAuth(c)
		if !ok {
			return
		}
		allowed, err := enforcer.Enforce(user.Role, resource, action)
		if err != nil {
			logger.WithTraceID(c.Request.Context(), logger.Get()).
				Error("authorization check failed", "role", user.Role, "resource", resource, "action", action, "error", err)
			abortWithError(c, apperrors.New(http.StatusInternalServerError, "authorization check failed", err))
			return
		}
		if !allowed {
			abortWithError(c, apperrors.Forbidden("forbidden"))
			return
		}
		c.Next()
	}
}

// GetUserFromContext retrieves the user from the Gin context
func GetUserFromContext(c *gin.Context) (auth.Principal, bool) {
	val, ok := c.Get(userContextName)
	if !ok {
		return auth.Principal{}, false
	}
	user, ok := val.(auth.Principal)
	return user, ok
}

// RequireAuth is a helper that checks if user is authenticated, writing error response if not
func RequireAuth(c *gin.Context) (auth.Principal, bool) {
	user, ok := GetUserFromContext(c)
	if !ok {
		abortWithError(c, apperrors.Unauthorized("unauthorized"))
		return auth.Principal{}, false
	}
	return user, true
}

func abortWithError(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

// GetSessionTokenFromContext extracts the session token from the cookie or
// an Authorization: Bearer header.
func GetSessionTokenFromContext(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
