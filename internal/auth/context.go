package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID    = "userID"
	ctxRole      = "userRole"
	ctxSessionID = "sessionID"
)

// SetIdentity stores the authenticated caller on the request context.
func SetIdentity(c *gin.Context, userID string, role Role, sessionID string) {
	c.Set(ctxUserID, userID)
	c.Set(ctxRole, role)
	c.Set(ctxSessionID, sessionID)
}

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetRole returns the authenticated user's role or empty string.
func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}
	return ""
}

func IsAdmin(c *gin.Context) bool {
	return GetRole(c) == RoleAdmin
}

// GetSessionID returns the session the request's token belongs to.
func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}
