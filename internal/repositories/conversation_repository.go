package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/JDEditz/Messaging-Web-App/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrDuplicateDirect      = errors.New("direct conversation already exists")
	ErrNotParticipant       = errors.New("user is not a participant")
)

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, isGroup bool, name *string, participantIDs []int) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID int) (models.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID int) ([]models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID int, userID int) (bool, error)
	ListParticipantIDs(ctx context.Context, conversationID int) ([]int, error)
	ListConversationIDsForUser(ctx context.Context, userID int) ([]int, error)
	RemoveParticipant(ctx context.Context, conversationID int, userID int) (remaining int, err error)
	DeleteConversation(ctx context.Context, conversationID int) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// DirectKey is the canonical key identifying the unordered pair of a direct
// conversation. The unique index on conversations.direct_key makes duplicate
// creation fail atomically instead of racing a check-then-insert.
func DirectKey(participantIDs []int) string {
	ids := append([]int(nil), participantIDs...)
	sort.Ints(ids)
	return fmt.Sprintf("%d:%d", ids[0], ids[1])
}

// CreateConversation inserts a conversation and its participants atomically.
// For direct conversations a duplicate pair yields ErrDuplicateDirect.
func (r *ConversationRepo) CreateConversation(ctx context.Context, isGroup bool, name *string, participantIDs []int) (models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var directKey *string
	if !isGroup {
		key := DirectKey(participantIDs)
		directKey = &key
		name = nil
	}

	var conv models.Conversation
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO conversations (is_group, name, direct_key) VALUES ($1, $2, $3)
         RETURNING id, is_group, name, direct_key, last_message_id, last_message_at, created_at`,
		isGroup, name, directKey).StructScan(&conv)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			err = ErrDuplicateDirect
		}
		return models.Conversation{}, err
	}

	ids := append([]int(nil), participantIDs...)
	sort.Ints(ids)
	for _, id := range ids {
		if _, err = tx.ExecContext(ctx, `INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)`, conv.ID, id); err != nil {
			return models.Conversation{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT id, is_group, name, direct_key, last_message_id, last_message_at, created_at FROM conversations WHERE id=$1`,
		conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListConversationsForUser returns the user's conversations ordered by most
// recent activity.
func (r *ConversationRepo) ListConversationsForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs,
		`SELECT c.id, c.is_group, c.name, c.direct_key, c.last_message_id, c.last_message_at, c.created_at
         FROM conversations c
         INNER JOIN conversation_participants cp ON cp.conversation_id = c.id
         WHERE cp.user_id=$1
         ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`,
		userID)
	return convs, err
}

// IsParticipant checks whether a user belongs to the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id=$1 AND user_id=$2)`,
		conversationID, userID)
	return exists, err
}

// ListParticipantIDs returns the participant set of a conversation.
func (r *ConversationRepo) ListParticipantIDs(ctx context.Context, conversationID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM conversation_participants WHERE conversation_id=$1 ORDER BY user_id`,
		conversationID)
	return ids, err
}

// ListConversationIDsForUser returns the ids of every conversation the user
// participates in, used for the post-auth room bootstrap.
func (r *ConversationRepo) ListConversationIDsForUser(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT conversation_id FROM conversation_participants WHERE user_id=$1`, userID)
	return ids, err
}

// RemoveParticipant removes the user from the conversation and reports how
// many participants remain. When the set empties, the conversation and its
// messages are purged in the same transaction.
func (r *ConversationRepo) RemoveParticipant(ctx context.Context, conversationID int, userID int) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM conversation_participants WHERE conversation_id=$1 AND user_id=$2`,
		conversationID, userID)
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if count == 0 {
		err = ErrNotParticipant
		return 0, err
	}

	var remaining int
	if err = tx.GetContext(ctx, &remaining,
		`SELECT COUNT(*) FROM conversation_participants WHERE conversation_id=$1`, conversationID); err != nil {
		return 0, err
	}
	if remaining == 0 {
		// ON DELETE CASCADE purges the messages with the conversation.
		if _, err = tx.ExecContext(ctx, `DELETE FROM conversations WHERE id=$1`, conversationID); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return remaining, nil
}

// DeleteConversation purges a conversation; its messages go with it via
// ON DELETE CASCADE.
func (r *ConversationRepo) DeleteConversation(ctx context.Context, conversationID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id=$1`, conversationID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}
