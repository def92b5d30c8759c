package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextKeyUserID = "auth.user_id"

// UserID returns the subject of the validated bearer token, or "" when the
// request did not pass requireBearer.
func UserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}

// requireBearer validates the Authorization header as a bearer access token
// and stores its subject on the gin context. It aborts with 401 otherwise.
func (s *Server) requireBearer(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		writeError(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	userID, err := s.engine.ValidateAccess(c.Request.Context(), token)
	if err != nil {
		writeError(c, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	c.Set(contextKeyUserID, userID)
	c.Next()
}

// RequireBearer exposes the bearer middleware for applications mounting
// their own protected routes next to the auth ones.
func (s *Server) RequireBearer() gin.HandlerFunc {
	return s.requireBearer
}
