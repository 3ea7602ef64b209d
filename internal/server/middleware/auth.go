// Package middleware holds the gin middleware shared by the HTTP services.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"soori/internal/security"
)

const bearerPrefix = "bearer "

// Auth returns middleware that validates the Bearer identity token from the Authorization header
// and sets identity_uid and phone_number in the request context.
// Requests without a valid token are rejected with 401.
func Auth(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
			return
		}
		claims, err := tokens.Validate(token)
		if err != nil || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
			return
		}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), claims.Subject, claims.PhoneNumber))
		c.Next()
	}
}

// extractBearer returns the Bearer token from an Authorization header value, or "" if missing or malformed.
func extractBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
