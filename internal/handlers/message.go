package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/JDEditz/Messaging-Web-App/internal/chat"
	"github.com/JDEditz/Messaging-Web-App/internal/models"
	"github.com/JDEditz/Messaging-Web-App/internal/ws"
)

// MessageHandler manages the message REST endpoints. Successful mutations
// are broadcast to the conversation's room so connected clients observe
// REST-driven changes the same way as websocket-driven ones.
type MessageHandler struct {
	service *chat.Service
	hub     *ws.Hub
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(service *chat.Service, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{service: service, hub: hub}
}

// ListMessages returns one page of a conversation's messages,
// oldest-to-newest within the page.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	views, err := h.service.ListMessages(c.Request.Context(), conversationID, userID, page, limit)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": views})
}

// SendMessage stores a message and broadcasts it to the room.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Content string `json:"content" binding:"required"`
		Kind    string `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.SendMessage(c.Request.Context(), conversationID, userID, req.Content, req.Kind)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "failed to send message"})
		return
	}

	h.hub.Publish(view.ConversationID, models.ServerEvent{
		Type:           models.EventNewMessage,
		ConversationID: view.ConversationID,
		Message:        &view,
	})
	c.JSON(http.StatusCreated, view)
}

// EditMessage rewrites a sender-owned message and broadcasts the edit.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.EditMessage(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "could not edit message"})
		return
	}

	h.hub.Publish(view.ConversationID, models.ServerEvent{
		Type:           models.EventMessageEdited,
		ConversationID: view.ConversationID,
		Message:        &view,
	})
	c.JSON(http.StatusOK, view)
}

// DeleteMessage removes a sender-owned message and broadcasts the removal.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	msg, err := h.service.DeleteMessage(c.Request.Context(), messageID, userID)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "could not delete message"})
		return
	}

	h.hub.Publish(msg.ConversationID, models.ServerEvent{
		Type:           models.EventMessageDeleted,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
	})
	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}
