package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/JDEditz/Messaging-Web-App/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines message persistence. Mutations that touch the
// owning conversation's last-message pointer run the pointer update in the
// same transaction as the triggering change.
type MessageRepository interface {
	CreateMessage(ctx context.Context, conversationID int, senderID int, content string, kind string) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	GetMessagesByIDs(ctx context.Context, ids []int) ([]models.Message, error)
	UpdateContent(ctx context.Context, messageID int, senderID int, content string) (models.Message, error)
	DeleteMessage(ctx context.Context, messageID int, senderID int) (models.Message, error)
	ListMessages(ctx context.Context, conversationID int, limit int, offset int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, content, kind, is_edited, edited_at, created_at`

// CreateMessage inserts a message and advances the conversation's
// last-message pointer in one transaction.
func (r *MessageRepo) CreateMessage(ctx context.Context, conversationID int, senderID int, content string, kind string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, content, kind) VALUES ($1, $2, $3, $4)
         RETURNING `+messageColumns,
		conversationID, senderID, content, kind).StructScan(&msg)
	if err != nil {
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE conversations SET last_message_id=$2, last_message_at=$3 WHERE id=$1`,
		conversationID, msg.ID, msg.CreatedAt); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// GetMessage fetches a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// GetMessagesByIDs fetches a set of messages in one query, used to join
// last-message pointers into conversation listings.
func (r *MessageRepo) GetMessagesByIDs(ctx context.Context, ids []int) ([]models.Message, error) {
	if len(ids) == 0 {
		return []models.Message{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+messageColumns+` FROM messages WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var msgs []models.Message
	err = r.db.SelectContext(ctx, &msgs, query, args...)
	return msgs, err
}

// UpdateContent rewrites a message's content when invoked by its sender.
// Existence and ownership are checked by the same predicate, so a non-owner
// observes the same ErrMessageNotFound as a missing id.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID int, senderID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`UPDATE messages SET content=$3, is_edited=TRUE, edited_at=NOW()
         WHERE id=$1 AND sender_id=$2
         RETURNING `+messageColumns,
		messageID, senderID, content).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteMessage hard-removes a sender-owned message and recomputes the
// conversation's last-message pointer to the surviving message with the
// greatest created_at, all in one transaction. When no message survives the
// pointer id becomes NULL while last_message_at is refreshed to now, so
// an emptied conversation keeps its recency rank. Returns the removed
// message.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID int, senderID int) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.Message
	err = tx.QueryRowxContext(ctx,
		`DELETE FROM messages WHERE id=$1 AND sender_id=$2 RETURNING `+messageColumns,
		messageID, senderID).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrMessageNotFound
		return models.Message{}, err
	}
	if err != nil {
		return models.Message{}, err
	}

	var last models.Message
	err = tx.QueryRowxContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		msg.ConversationID).StructScan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
		if _, err = tx.ExecContext(ctx,
			`UPDATE conversations SET last_message_id=NULL, last_message_at=NOW() WHERE id=$1`,
			msg.ConversationID); err != nil {
			return models.Message{}, err
		}
	case err != nil:
		return models.Message{}, err
	default:
		if _, err = tx.ExecContext(ctx,
			`UPDATE conversations SET last_message_id=$2, last_message_at=$3 WHERE id=$1`,
			msg.ConversationID, last.ID, last.CreatedAt); err != nil {
			return models.Message{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListMessages returns one offset page of a conversation's messages,
// newest first. Callers reverse the page for oldest-to-newest display.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID int, limit int, offset int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1
         ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		conversationID, limit, offset)
	return msgs, err
}
