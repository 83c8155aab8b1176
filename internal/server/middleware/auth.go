package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"user-auth-service/internal/security"
	"user-auth-service/internal/session/validator"
)

const claimsKey = "authClaims"

// Auth validates the Authorization header and attaches token claims. Beyond
// the signature check, every request confirms that the token's session is
// still live, so a stolen-but-revoked token is rejected immediately.
type Auth struct {
	Codec     *security.TokenCodec
	Validator validator.Validator
}

// ValidateJWT ensures the request carries a valid bearer access token bound
// to a live session.
func (m *Auth) ValidateJWT(c *gin.Context) {
	token, ok := BearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		return
	}
	claims, err := m.Codec.VerifyAccess(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access token"})
		return
	}
	// Both claims are required to tie the token to a session row.
	if _, ok := claims.UserID(); !ok || claims.SessionID() == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access token"})
		return
	}
	if err := m.Validator.Validate(c.Request.Context(), claims.SessionID()); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session revoked or expired"})
		return
	}
	c.Set(claimsKey, claims)
	c.Next()
}

// RequireRole guards a route group to callers whose token carries one of the
// given roles. Must run after ValidateJWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// GetClaims exposes the verified token claims to handlers.
func GetClaims(c *gin.Context) (*security.Claims, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*security.Claims)
	return claims, ok
}

// GetUserID returns the authenticated user's id.
func GetUserID(c *gin.Context) (int64, bool) {
	claims, ok := GetClaims(c)
	if !ok {
		return 0, false
	}
	return claims.UserID()
}

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
