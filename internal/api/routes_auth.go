package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tmusaev/feedline/internal/handlers"
)

func registerAuthRoutes(engine *gin.Engine, api *gin.RouterGroup, handler *handlers.AuthHandler, requireAuth gin.HandlerFunc) {
	auth := engine.Group("/api/auth")
	{
		auth.POST("/register", handler.Register)
		auth.POST("/verify/:id", handler.Verify)
		auth.POST("/verify/:id/resend", handler.Resend)
		auth.POST("/login", handler.Login)
		auth.POST("/refresh", handler.Refresh)
	}

	api.GET("/auth/me", requireAuth, handler.Me)
	api.POST("/auth/logout", requireAuth, handler.Logout)
}
