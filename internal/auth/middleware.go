package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthRequired is a Gin middleware that validates JWT from Authorization: Bearer <token>.
// When sessions is non-nil the token's session must also still be live.
func AuthRequired(jwtManager *JWTManager, sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing Authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid Authorization header format",
			})
			return
		}

		claims, err := jwtManager.ParseAndValidate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		if sessions != nil {
			owner, err := sessions.Validate(c.Request.Context(), claims.ID)
			if err != nil && !errors.Is(err, ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "session store unavailable",
				})
				return
			}
			if err != nil || owner != claims.UserID {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "session expired or revoked",
				})
				return
			}
		}

		SetIdentity(c, claims.UserID, claims.Role, claims.ID)

		c.Next()
	}
}

