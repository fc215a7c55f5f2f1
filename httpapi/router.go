package httpapi

import "github.com/gin-gonic/gin"

// NewRouter wires the auth routes onto a fresh gin engine. Logout sits behind
// the bearer guard so a caller can only end their own session.
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	auth := router.Group("/auth")
	{
		auth.POST("/signup", s.Signup)
		auth.POST("/login", s.Login)
		auth.POST("/refresh", s.Refresh)
		auth.POST("/logout", s.RequireAccess(), s.Logout)
		auth.GET("/me", s.RequireAccess(), s.Me)
	}

	router.GET("/metrics", s.Metrics)

	return router
}
