package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by RequireAccess.
const (
	ctxUserID = "authUserID"
	ctxEmail  = "authEmail"
)

// RequireAccess validates the bearer access token by signature and expiry and
// puts the principal on the request context. No session store round-trip
// happens here; an access token stays usable for its full lifetime even after
// logout.
func (s *Server) RequireAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		result, err := s.engine.ValidateAccess(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxUserID, result.UserID)
		c.Set(ctxEmail, result.Email)
		c.Next()
	}
}
