package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/majstri/messaging/internal/chat"
	"github.com/majstri/messaging/internal/models"
)

// MessageHandler handles message and conversation routes.
type MessageHandler struct {
	Service *chat.Service
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(service *chat.Service) *MessageHandler {
	return &MessageHandler{Service: service}
}

// identity pulls the authenticated user id and role set by the auth
// middleware.
func identity(c *gin.Context) (uuid.UUID, models.Role, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, "", false
	}
	role, exists := c.Get("role")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, "", false
	}
	return userID.(uuid.UUID), role.(models.Role), true
}

// GetContacts returns the caller's derived contact list.
func (h *MessageHandler) GetContacts(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.Service.LoadContacts(userID, role))
}

// GetMessages returns a conversation's history, oldest first. Unread
// messages addressed to the caller are marked read as a side effect.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(c.Param("conversationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	c.JSON(http.StatusOK, h.Service.LoadMessages(conversationID, userID))
}

// SendMessage appends a message, creating the conversation on first
// contact.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}

	var req models.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Service.Send(userID, role, &req)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyContent), errors.Is(err, chat.ErrMissingCounterpart):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, chat.ErrNotAuthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// MarkConversationRead flips the caller's unread messages in the
// conversation to read.
func (h *MessageHandler) MarkConversationRead(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(c.Param("conversationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	if err := h.Service.MarkRead(conversationID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark conversation read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation marked as read"})
}

// ArchiveConversation sets or clears the caller's archive flag.
func (h *MessageHandler) ArchiveConversation(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(c.Param("conversationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	var req struct {
		Archived bool `json:"archived"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Service.Archive(conversationID, userID, role, req.Archived); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation updated"})
}

// DeleteConversation flags the conversation deleted for the caller's
// side only.
func (h *MessageHandler) DeleteConversation(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(c.Param("conversationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	if err := h.Service.Delete(conversationID, userID, role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted"})
}
