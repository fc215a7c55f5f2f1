package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rotor-auth/rotor/token"
)

// refreshCookie is the cookie carrying the refresh token.
const refreshCookie = "refresh_token"

// setRefreshCookie installs the rotated refresh token. Max-Age tracks the
// token's own expiry so the cookie and the signature lapse together.
func (s *Server) setRefreshCookie(c *gin.Context, pair token.Pair) {
	maxAge := int(time.Until(pair.RefreshExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, pair.RefreshToken, maxAge, "/", "", s.secureCookies, true)
}

func (s *Server) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, "", -1, "/", "", s.secureCookies, true)
}
