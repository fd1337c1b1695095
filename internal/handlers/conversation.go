package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JDEditz/Messaging-Web-App/internal/chat"
	"github.com/JDEditz/Messaging-Web-App/internal/telemetry"
)

// ConversationHandler manages the conversation REST endpoints.
type ConversationHandler struct {
	service *chat.Service
	audit   *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(service *chat.Service, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{service: service, audit: audit}
}

// ListConversations returns the caller's conversations ordered by most
// recent activity.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	views, err := h.service.ListConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": views})
}

// CreateConversation creates a direct or group conversation.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		ParticipantIDs []int  `json:"participant_ids"`
		Name           string `json:"name"`
		IsGroup        bool   `json:"is_group"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.CreateConversation(c.Request.Context(), userID, req.ParticipantIDs, req.Name, req.IsGroup)
	if err != nil {
		h.emitAudit(c, "ERROR", "conversation create failed")
		c.JSON(statusFromError(err), gin.H{"error": "could not create conversation"})
		return
	}

	h.emitAudit(c, "INFO", "conversation created")
	c.JSON(http.StatusCreated, view)
}

// GetConversation returns one conversation for a participant.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conversationID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	view, err := h.service.GetConversation(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteConversation purges a conversation and its messages.
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	conversationID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if err := h.service.DeleteConversation(c.Request.Context(), conversationID, userID); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "could not delete conversation"})
		return
	}

	h.emitAudit(c, "INFO", "conversation deleted")
	c.JSON(http.StatusOK, gin.H{"message": "conversation deleted"})
}

// LeaveConversation removes the caller from a group conversation.
func (h *ConversationHandler) LeaveConversation(c *gin.Context) {
	conversationID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if err := h.service.LeaveConversation(c.Request.Context(), conversationID, userID); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "could not leave conversation"})
		return
	}

	h.emitAudit(c, "INFO", "conversation left")
	c.JSON(http.StatusOK, gin.H{"message": "left conversation"})
}

func (h *ConversationHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
