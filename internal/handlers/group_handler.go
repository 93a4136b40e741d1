package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/VladChristmas/bot/internal/models"
	"github.com/VladChristmas/bot/internal/services"
)

type GroupHandler struct {
	directory services.DirectoryService
}

func NewGroupHandler(directory services.DirectoryService) *GroupHandler {
	return &GroupHandler{directory: directory}
}

// GET /api/groups
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.directory.ListGroups(c.Request.Context())
	if err != nil {
		log.Printf("[group][list][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups, "total": len(groups)})
}

// POST /api/groups
func (h *GroupHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.directory.CreateGroup(c.Request.Context(), req.Name)
	switch {
	case errors.Is(err, models.ErrDuplicateName):
		c.JSON(http.StatusConflict, gin.H{"error": "group name already exists"})
	case errors.Is(err, models.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": "group name is empty"})
	case err != nil:
		log.Printf("[group][create][err] name=%q: %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// POST /api/groups/:id/chats
func (h *GroupHandler) AddChat(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	var req struct {
		ChatID int64 `json:"chat_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.directory.AddChatToGroup(c.Request.Context(), groupID, req.ChatID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "group or chat not found"})
	case err != nil:
		log.Printf("[group][addchat][err] group=%d chat=%d: %v", groupID, req.ChatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
