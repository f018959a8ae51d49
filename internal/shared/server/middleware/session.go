package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"

	// SessionCookieName is the cookie carrying the opaque session token.
	SessionCookieName = "session"
)

// SessionResolver resolves an opaque session token to a user identity.
// A missing, invalid, or expired token resolves to ok=false without error.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (userID, email string, ok bool)
}

// Session loads the session cookie and stores the caller's identity in
// context when the token is valid. It never rejects the request; handlers
// that require authentication check the context themselves. Expired or
// unknown tokens behave identically to an absent cookie.
func Session(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		userID, email, ok := resolver.Resolve(c.Request.Context(), token)
		if !ok {
			c.Next()
			return
		}

		c.Set(userIDKey, userID)
		if email != "" {
			c.Set(userEmailKey, email)
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the session middleware.
// It returns "" for unauthenticated requests.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserEmailFromContext fetches the user email set by the session middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}
