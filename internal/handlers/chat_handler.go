package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VladChristmas/bot/internal/services"
)

type ChatHandler struct {
	directory services.DirectoryService
}

func NewChatHandler(directory services.DirectoryService) *ChatHandler {
	return &ChatHandler{directory: directory}
}

// GET /api/chats
func (h *ChatHandler) List(c *gin.Context) {
	chats, err := h.directory.ListChats(c.Request.Context())
	if err != nil {
		log.Printf("[chat][list][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats, "total": len(chats)})
}

// POST /api/chats
func (h *ChatHandler) Register(c *gin.Context) {
	var req struct {
		ChatID  int64  `json:"chat_id" binding:"required"`
		Title   string `json:"title" binding:"required"`
		IsGroup bool   `json:"is_group"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.directory.RegisterChat(c.Request.Context(), req.ChatID, req.Title, req.IsGroup)
	if err != nil {
		log.Printf("[chat][register][err] chat=%d: %v", req.ChatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}
