package models

import "time"

// Conversation is a direct or group conversation. LastMessageID and
// LastMessageAt are denormalized pointers to the most recent surviving
// message and are maintained by the chat service.
type Conversation struct {
	ID            int        `db:"id" json:"id"`
	IsGroup       bool       `db:"is_group" json:"is_group"`
	Name          *string    `db:"name" json:"name,omitempty"`
	DirectKey     *string    `db:"direct_key" json:"-"`
	LastMessageID *int       `db:"last_message_id" json:"last_message_id,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// ConversationView is the API-facing shape: the conversation with its
// participants and last message joined in on the read side.
type ConversationView struct {
	Conversation
	Participants []UserSummary `json:"participants"`
	LastMessage  *MessageView  `json:"last_message,omitempty"`
}
