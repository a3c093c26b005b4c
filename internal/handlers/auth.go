package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kartikbazzad/bunbase/lookup/internal/auth"
	"github.com/kartikbazzad/bunbase/lookup/internal/metrics"
	"github.com/kartikbazzad/bunbase/lookup/internal/middleware"
	"github.com/kartikbazzad/bunbase/lookup/pkg/logger"
)

// AuthHandler handles login, logout and the current user.
type AuthHandler struct {
	users        *auth.Directory
	sessions     *auth.SessionStore
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(users *auth.Directory, sessions *auth.SessionStore, secureCookie bool) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, secureCookie: secureCookie}
}

// LoginRequest represents a login request. Identifier is a name or an email.
type LoginRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
	Password   string `json:"password" form:"password"`
}

// LoginResponse is the body of every login reply.
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Login handles user login from a JSON or form body
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, LoginResponse{Message: "invalid request body"})
		return
	}

	user, err := h.users.Authenticate(req.Identifier, req.Password)
	if err != nil {
		status, message, result := loginFailure(err)
		metrics.LoginsTotal.WithLabelValues(result).Inc()
		c.JSON(status, LoginResponse{Message: message})
		return
	}

	sess, err := h.sessions.Create(user.Principal())
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		respondError(c, err)
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie,
	})

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	logger.WithTraceID(c.Request.Context(), logger.Get()).
		Info("User logged in", "user", user.Email, "role", sess.User.Role)
	c.JSON(http.StatusOK, LoginResponse{Success: true, Message: "Login successful."})
}

func loginFailure(err error) (status int, message, result string) {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusBadRequest, "Please enter your name or email and password.", "missing"
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusUnauthorized, "User does not exist.", "unknown_user"
	default:
		return http.StatusUnauthorized, "Wrong password.", "wrong_password"
	}
}

// Logout destroys the session and sends the browser back to the login page.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.GetSessionTokenFromContext(c); token != "" {
		h.sessions.Delete(token)
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie,
	})

	c.Redirect(http.StatusFound, middleware.LoginPage)
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.RequireAuth(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}
