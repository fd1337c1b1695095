package models

// Server-to-client event types carried over the websocket.
const (
	EventNewMessage     = "new_message"
	EventMessageEdited  = "message_edited"
	EventMessageDeleted = "message_deleted"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventUserOnline     = "user_online"
	EventUserOffline    = "user_offline"
	EventError          = "error"
)

// Client-to-server command types.
const (
	CommandJoinRoom      = "join_room"
	CommandLeaveRoom     = "leave_room"
	CommandSendMessage   = "send_message"
	CommandEditMessage   = "edit_message"
	CommandDeleteMessage = "delete_message"
	CommandTyping        = "typing"
	CommandStopTyping    = "stop_typing"
)

// ServerEvent is broadcast through websockets.
type ServerEvent struct {
	Type           string       `json:"type"`
	ConversationID int          `json:"conversation_id,omitempty"`
	Message        *MessageView `json:"message,omitempty"`
	MessageID      int          `json:"message_id,omitempty"`
	UserID         int          `json:"user_id,omitempty"`
	Username       string       `json:"username,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// ClientCommand is a single inbound websocket frame.
type ClientCommand struct {
	Type           string `json:"type"`
	ConversationID int    `json:"conversation_id,omitempty"`
	MessageID      int    `json:"message_id,omitempty"`
	Content        string `json:"content,omitempty"`
	Kind           string `json:"kind,omitempty"`
}
