package routes

import (
	"civicconnect/internal/handlers"
	"civicconnect/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes registers the public account endpoints. Register and login get a
// tighter per-IP budget when limiter is set.
func SetupAuthRoutes(router *gin.Engine, authHandler *handlers.AuthHandler, limiter middleware.Limiter, perMinute int) {
	auth := router.Group("/user")
	{
		credentials := auth.Group("")
		if limiter != nil {
			credentials.Use(middleware.RateLimit(limiter, perMinute))
		}
		credentials.POST("/register", authHandler.Register)
		credentials.POST("/login", authHandler.Login)

		auth.POST("/logout", authHandler.Logout)
	}
}
