package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VladChristmas/bot/internal/handlers"
	"github.com/VladChristmas/bot/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	apiToken string,
	chatHandler *handlers.ChatHandler,
	groupHandler *handlers.GroupHandler,
	taskHandler *handlers.TaskHandler,
) *gin.Engine {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(apiToken))
	{
		api.GET("/chats", chatHandler.List)
		api.POST("/chats", chatHandler.Register)

		api.GET("/groups", groupHandler.List)
		api.POST("/groups", groupHandler.Create)
		api.POST("/groups/:id/chats", groupHandler.AddChat)

		api.GET("/tasks/active", taskHandler.Active)
	}

	return r
}
