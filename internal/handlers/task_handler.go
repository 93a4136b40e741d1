package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VladChristmas/bot/internal/services"
)

type TaskHandler struct {
	tasks services.TaskService
}

func NewTaskHandler(tasks services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// GET /api/tasks/active
func (h *TaskHandler) Active(c *gin.Context) {
	snapshot, err := h.tasks.ActiveTasks(c.Request.Context())
	if err != nil {
		log.Printf("[task][active][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": snapshot, "total": len(snapshot)})
}
