package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/JDEditz/Messaging-Web-App/internal/auth"
	"github.com/JDEditz/Messaging-Web-App/internal/chat"
	"github.com/JDEditz/Messaging-Web-App/internal/models"
	"github.com/JDEditz/Messaging-Web-App/internal/observability"
	"github.com/JDEditz/Messaging-Web-App/internal/repositories"
)

const wsEventsRouting = "ws_events.messaging"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler owns the websocket endpoint: it authenticates the handshake,
// registers the connection, joins it to a room per conversation the user
// participates in, and dispatches inbound commands.
type Handler struct {
	hub      *Hub
	service  *chat.Service
	users    repositories.UserRepository
	verifier auth.Verifier
}

// NewHandler constructs a websocket Handler.
func NewHandler(hub *Hub, service *chat.Service, users repositories.UserRepository, verifier auth.Verifier) *Handler {
	return &Handler{hub: hub, service: service, users: users, verifier: verifier}
}

// Handle upgrades the connection, registers the client, and runs its read
// loop in a dedicated goroutine.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	userID, err := h.verifier.ValidateToken(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		Username:    user.Username,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := newClient(conn, info)

	first := h.hub.Register(client)

	// The request context dies with the handshake; lifecycle work started
	// from the read loop must outlive the connection.
	bg := context.Background()

	ids, err := h.service.ConversationIDsForUser(bg, user.ID)
	if err != nil {
		log.Printf("room bootstrap failed for user %d: %v", user.ID, err)
	}
	for _, id := range ids {
		h.hub.Join(client, id)
	}

	if first {
		if err := h.users.SetOnline(bg, user.ID, true); err != nil {
			log.Printf("set online failed for user %d: %v", user.ID, err)
		}
		h.hub.BroadcastGlobal(models.ServerEvent{
			Type:     models.EventUserOnline,
			UserID:   user.ID,
			Username: user.Username,
		}, client)
	}

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishWSEvent(bg, "ws_connect", info, "")

	go client.writePump()
	go h.readPump(bg, client)
}

func (h *Handler) readPump(ctx context.Context, client *Client) {
	info := client.info
	var closeReason string

	defer func() {
		last := h.hub.Deregister(client)
		client.conn.Close()

		if last {
			if err := h.users.SetOnline(ctx, info.UserID, false); err != nil {
				log.Printf("set offline failed for user %d: %v", info.UserID, err)
			}
			h.hub.BroadcastGlobal(models.ServerEvent{
				Type:     models.EventUserOffline,
				UserID:   info.UserID,
				Username: info.Username,
			}, client)
		}

		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishWSEvent(ctx, "ws_disconnect", info, closeReason)
	}()

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishWSEvent(ctx, "ws_error", info, closeReason)
			}
			return
		}

		var cmd models.ClientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			client.Send(models.ServerEvent{Type: models.EventError, Error: "malformed command"})
			continue
		}
		h.dispatch(ctx, client, cmd)
	}
}

func (h *Handler) dispatch(ctx context.Context, client *Client, cmd models.ClientCommand) {
	userID := client.info.UserID

	switch cmd.Type {
	case models.CommandJoinRoom:
		member, err := h.service.IsParticipant(ctx, cmd.ConversationID, userID)
		if err != nil || !member {
			client.Send(models.ServerEvent{Type: models.EventError, Error: "conversation not found"})
			return
		}
		h.hub.Join(client, cmd.ConversationID)

	case models.CommandLeaveRoom:
		h.hub.Leave(client, cmd.ConversationID)

	case models.CommandSendMessage:
		view, err := h.service.SendMessage(ctx, cmd.ConversationID, userID, cmd.Content, cmd.Kind)
		if err != nil {
			client.Send(models.ServerEvent{Type: models.EventError, Error: "failed to send message"})
			return
		}
		h.hub.Publish(view.ConversationID, models.ServerEvent{
			Type:           models.EventNewMessage,
			ConversationID: view.ConversationID,
			Message:        &view,
		})

	case models.CommandEditMessage:
		view, err := h.service.EditMessage(ctx, cmd.MessageID, userID, cmd.Content)
		if err != nil {
			client.Send(models.ServerEvent{Type: models.EventError, Error: "failed to edit message"})
			return
		}
		h.hub.Publish(view.ConversationID, models.ServerEvent{
			Type:           models.EventMessageEdited,
			ConversationID: view.ConversationID,
			Message:        &view,
		})

	case models.CommandDeleteMessage:
		msg, err := h.service.DeleteMessage(ctx, cmd.MessageID, userID)
		if err != nil {
			client.Send(models.ServerEvent{Type: models.EventError, Error: "failed to delete message"})
			return
		}
		h.hub.Publish(msg.ConversationID, models.ServerEvent{
			Type:           models.EventMessageDeleted,
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
		})

	case models.CommandTyping:
		h.hub.PublishExcept(cmd.ConversationID, models.ServerEvent{
			Type:           models.EventUserTyping,
			ConversationID: cmd.ConversationID,
			UserID:         userID,
			Username:       client.info.Username,
		}, client)

	case models.CommandStopTyping:
		h.hub.PublishExcept(cmd.ConversationID, models.ServerEvent{
			Type:           models.EventUserStopTyping,
			ConversationID: cmd.ConversationID,
			UserID:         userID,
		}, client)

	default:
		client.Send(models.ServerEvent{Type: models.EventError, Error: "unknown command"})
	}
}

func (h *Handler) publishWSEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.TraceHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, wsEventsRouting, observability.SocketEvent{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			return header[len(prefix):]
		}
		return ""
	}
	return c.Query("token")
}
