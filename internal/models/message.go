package models

import "time"

// Message is a persisted conversation message. Deletion is a hard removal;
// there is no tombstone row.
type Message struct {
	ID             int        `db:"id" json:"id"`
	ConversationID int        `db:"conversation_id" json:"conversation_id"`
	SenderID       int        `db:"sender_id" json:"sender_id"`
	Content        string     `db:"content" json:"content"`
	Kind           string     `db:"kind" json:"kind"`
	IsEdited       bool       `db:"is_edited" json:"is_edited"`
	EditedAt       *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// MessageView is a message with its sender summary attached for display.
type MessageView struct {
	Message
	Sender UserSummary `json:"sender"`
}
