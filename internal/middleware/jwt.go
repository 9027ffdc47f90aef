package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by Authenticate
const (
	UserIDKey    = "user_id"
	IsAdminKey   = "is_admin"
	IsServiceKey = "is_service"
)

// Roles read from the roles claim
const (
	RoleAdmin   = "ADMIN"
	RoleService = "SERVICE"
)

// Authenticate verifies an optional HMAC bearer token. A valid token puts the
// subject under UserIDKey; a missing or invalid one leaves the context
// anonymous and the handler decides what that means.
func Authenticate(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil || !token.Valid {
			c.Next()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.Next()
			return
		}

		sub, _ := claims.GetSubject()
		if sub != "" {
			c.Set(UserIDKey, sub)
			c.Set(IsAdminKey, hasRole(claims["roles"], RoleAdmin))
			c.Set(IsServiceKey, hasRole(claims["roles"], RoleService))
		}
		c.Next()
	}
}

// RequireAdmin rejects requests that did not authenticate as an admin.
// Must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return requireRole(IsAdminKey, "Admin access only")
}

// RequireService admits only tokens carrying the SERVICE role, the credential
// of the publishers that deliver document-creation triggers. Must run after
// Authenticate.
func RequireService() gin.HandlerFunc {
	return requireRole(IsServiceKey, "Service access only")
}

func requireRole(key, denied string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UserIDKey) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		if !c.GetBool(key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": denied})
			return
		}
		c.Next()
	}
}

func hasRole(rawRoles interface{}, role string) bool {
	switch roles := rawRoles.(type) {
	case []interface{}:
		for _, r := range roles {
			if s, ok := r.(string); ok && s == role {
				return true
			}
		}
	case []string:
		for _, s := range roles {
			if s == role {
				return true
			}
		}
	case string:
		return roles == role
	}
	return false
}
