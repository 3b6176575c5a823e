package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipeclip/internal/auth"
	"github.com/timmy/recipeclip/internal/domain"
	"github.com/timmy/recipeclip/internal/logger"
)

const claimsKey = "claims"

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}
		c.Next()
	}
}

// OptionalAuth records the caller when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, tokens)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. It must run after
// RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := Actor(c)
		if !ok || !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			return
		}
		c.Next()
	}
}

// Actor returns the authenticated caller, if any.
func Actor(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return domain.Actor{}, false
	}
	claims := v.(*auth.Claims)
	return domain.Actor{UserID: claims.UserID, Role: claims.Role}, true
}

// ViewerID returns the caller's user id, or 0 for anonymous requests.
func ViewerID(c *gin.Context) uint {
	actor, _ := Actor(c)
	return actor.UserID
}

func authenticate(c *gin.Context, tokens *auth.TokenManager) bool {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return false
	}
	claims, err := tokens.Parse(strings.TrimSpace(token))
	if err != nil {
		logger.CtxDebug(c.Request.Context(), "Rejected token: %v", err)
		return false
	}
	c.Set(claimsKey, claims)
	c.Request = c.Request.WithContext(logger.SetUserID(c.Request.Context(), claims.UserID))
	return true
}
