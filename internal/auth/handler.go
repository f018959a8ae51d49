package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"policyscan-backend/internal/sessions"
	"policyscan-backend/internal/shared/server/middleware"
	"policyscan-backend/internal/shared/server/respond"
	"policyscan-backend/internal/users"
)

// Handler wires the auth HTTP endpoints to the service.
type Handler struct {
	Svc          *Service
	Sessions     *sessions.Service
	CookieSecure bool
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, sessionSvc *sessions.Service, cookieSecure bool) *Handler {
	return &Handler{Svc: svc, Sessions: sessionSvc, CookieSecure: cookieSecure}
}

// RegisterRoutes attaches the session-state routes. These must stay
// reachable at all times; /auth/me in particular degrades instead of
// erroring, so no throttling belongs here.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/signout", h.signout)
	rg.GET("/auth/me", h.me)
}

// RegisterCredentialRoutes attaches the password-bearing endpoints, kept
// separate so the router can throttle them.
func (h *Handler) RegisterCredentialRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/signup", h.signup)
	rg.POST("/auth/signin", h.signin)
}

// RegisterDevRoutes attaches operator-only routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions/purge", h.purgeSessions)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	err := h.Svc.Signup(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		respond.JSON(c, http.StatusCreated, gin.H{"success": true, "message": "Account created"})
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Email and password required", nil)
	case errors.Is(err, users.ErrEmailTaken):
		respond.Error(c, http.StatusBadRequest, "email_taken", "User already exists", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Signup failed", nil)
	}
}

func (h *Handler) signin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	session, err := h.Svc.Signin(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		h.setSessionCookie(c, session.ID, int(time.Until(session.ExpiresAt).Seconds()))
		respond.OK(c, gin.H{"success": true, "message": "Signed in"})
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Email and password required", nil)
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Signin failed", nil)
	}
}

func (h *Handler) signout(c *gin.Context) {
	token, err := c.Cookie(middleware.SessionCookieName)
	if err == nil && token != "" {
		// Failure to delete the row only means the token lingers until
		// expiry; the cookie is cleared either way.
		_ = h.Svc.Signout(c.Request.Context(), token)
	}

	h.setSessionCookie(c, "", -1)
	respond.OK(c, gin.H{"success": true})
}

// me reports the caller's identity. It degrades to authenticated:false and
// never errors.
func (h *Handler) me(c *gin.Context) {
	token, err := c.Cookie(middleware.SessionCookieName)
	if err != nil || token == "" {
		respond.OK(c, gin.H{"authenticated": false})
		return
	}

	user, ok := h.Svc.Identify(c.Request.Context(), token)
	if !ok {
		respond.OK(c, gin.H{"authenticated": false})
		return
	}

	respond.OK(c, gin.H{
		"authenticated": true,
		"user":          gin.H{"id": user.ID, "email": user.Email},
	})
}

func (h *Handler) purgeSessions(c *gin.Context) {
	removed, err := h.Sessions.PurgeExpired(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to purge sessions", nil)
		return
	}
	respond.OK(c, gin.H{"success": true, "removed": removed})
}

func (h *Handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, value, maxAge, "/", "", h.CookieSecure, true)
}
