package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridehail/internal/auth"
	"ridehail/internal/domain"
)

const (
	callerIDKey   = "callerID"
	callerRoleKey = "callerRole"
)

// Auth resolves the bearer token into the caller's account and role.
func Auth(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		c.Set(callerIDKey, identity.AccountID)
		c.Set(callerRoleKey, identity.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose role differs. Must run after Auth.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "requires " + string(role) + " role"})
			return
		}
		c.Next()
	}
}

// CallerID returns the authenticated account ID, or "".
func CallerID(c *gin.Context) string {
	return c.GetString(callerIDKey)
}

// CallerRole returns the authenticated role, or "".
func CallerRole(c *gin.Context) domain.Role {
	if v, ok := c.Get(callerRoleKey); ok {
		if role, ok := v.(domain.Role); ok {
			return role
		}
	}
	return ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
