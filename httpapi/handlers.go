package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rotor-auth/rotor"
	"github.com/rotor-auth/rotor/token"
)

// Server holds the HTTP handlers over one engine.
type Server struct {
	engine        *rotor.Engine
	logger        *slog.Logger
	secureCookies bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a structured logger for 5xx paths.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithSecureCookies marks the refresh cookie Secure. Enable behind TLS.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secureCookies = secure }
}

// NewServer wraps an engine with HTTP handlers.
func NewServer(engine *rotor.Engine, opts ...Option) *Server {
	s := &Server{engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type signupRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /auth/signup.
func (s *Server) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if _, err := s.engine.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName); err != nil {
		switch {
		case errors.Is(err, rotor.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, rotor.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		default:
			s.fail(c, "signup failed", err)
		}
		return
	}

	c.Status(http.StatusCreated)
}

// Login handles POST /auth/login. Any credential failure answers the same
// 401 body.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, err := s.engine.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, rotor.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		s.fail(c, "login failed", err)
		return
	}

	s.setRefreshCookie(c, pair)
	c.JSON(http.StatusOK, tokenResponse(pair))
}

// Refresh handles POST /auth/refresh. A missing or lapsed session is 401; a
// token that exists but is not the active one is 403, and the stored session
// is left untouched.
func (s *Server) Refresh(c *gin.Context) {
	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token required"})
		return
	}

	pair, err := s.engine.Refresh(c.Request.Context(), presented)
	if err != nil {
		switch {
		case errors.Is(err, rotor.ErrSessionExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		case errors.Is(err, rotor.ErrAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		default:
			s.fail(c, "refresh failed", err)
		}
		return
	}

	s.setRefreshCookie(c, pair)
	c.JSON(http.StatusOK, tokenResponse(pair))
}

// Logout handles POST /auth/logout. The caller authenticates with the bearer
// access token; 404 means there was no session to end.
func (s *Server) Logout(c *gin.Context) {
	userID := c.GetString(ctxUserID)

	err := s.engine.Logout(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, rotor.ErrNoActiveSession) {
			s.clearRefreshCookie(c)
			c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
			return
		}
		s.fail(c, "logout failed", err)
		return
	}

	s.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me handles GET /auth/me.
func (s *Server) Me(c *gin.Context) {
	user, err := s.engine.UserByID(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		if errors.Is(err, rotor.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		s.fail(c, "me lookup failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      user.UserID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"created_at":   user.CreatedAt,
	})
}

// Metrics handles GET /metrics in Prometheus text format.
func (s *Server) Metrics(c *gin.Context) {
	c.Header("Content-Type", "text/plain; version=0.0.4")
	if err := s.engine.Metrics().WritePrometheus(c.Writer); err != nil && s.logger != nil {
		s.logger.Warn("metrics write failed", "error", err)
	}
}

func (s *Server) fail(c *gin.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.ErrorContext(c.Request.Context(), msg, "error", err)
	}
	if errors.Is(err, rotor.ErrStoreUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// tokenResponse renders the pair for the body. The refresh token travels only
// in the cookie, never here.
func tokenResponse(pair token.Pair) gin.H {
	return gin.H{
		"access_token": pair.AccessToken,
		"token_type":   "Bearer",
		"expires_at":   pair.AccessExpiresAt.Unix(),
	}
}
