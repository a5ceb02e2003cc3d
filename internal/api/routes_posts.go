package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tmusaev/feedline/internal/handlers"
)

func registerPostRoutes(api *gin.RouterGroup, handler *handlers.PostHandler, requireAuth gin.HandlerFunc) {
	posts := api.Group("/posts")
	{
		// The feed is public; everything that writes requires a session.
		// Staff-only enforcement for post management lives in the service.
		posts.GET("", handler.List)
		posts.GET("/:id", handler.Get)
		posts.POST("", requireAuth, handler.Create)
		posts.PATCH("/:id", requireAuth, handler.Update)
		posts.DELETE("/:id", requireAuth, handler.Delete)
		posts.POST("/:id/like", requireAuth, handler.ToggleLike)
		posts.POST("/:id/comments", requireAuth, handler.AddComment)
	}
}
