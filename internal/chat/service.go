package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JDEditz/Messaging-Web-App/internal/models"
	"github.com/JDEditz/Messaging-Web-App/internal/observability"
	"github.com/JDEditz/Messaging-Web-App/internal/repositories"
)

// DefaultMessageKind is applied when a send carries no kind.
const DefaultMessageKind = "text"

// Service coordinates the message lifecycle: it authorizes and applies
// send/edit/delete operations, keeps each conversation's last-message
// pointer consistent, and performs the read-side joins that attach sender
// and participant summaries to results.
type Service struct {
	convRepo repositories.ConversationRepository
	msgRepo  repositories.MessageRepository
	userRepo repositories.UserRepository
	locks    *conversationLocks
}

// NewService builds a Service.
func NewService(convRepo repositories.ConversationRepository, msgRepo repositories.MessageRepository, userRepo repositories.UserRepository) *Service {
	return &Service{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		userRepo: userRepo,
		locks:    newConversationLocks(),
	}
}

// SendMessage validates membership, stores the message, and advances the
// conversation's last-message pointer. The sender summary is attached to
// the returned view.
func (s *Service) SendMessage(ctx context.Context, conversationID int, senderID int, content string, kind string) (models.MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.MessageView{}, fmt.Errorf("%w: empty content", ErrInvalidArgument)
	}
	if kind == "" {
		kind = DefaultMessageKind
	}

	member, err := s.convRepo.IsParticipant(ctx, conversationID, senderID)
	if err != nil {
		return models.MessageView{}, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return models.MessageView{}, ErrNotFound
	}

	unlock := s.locks.lock(conversationID)
	defer unlock()

	msg, err := s.msgRepo.CreateMessage(ctx, conversationID, senderID, content, kind)
	if err != nil {
		return models.MessageView{}, fmt.Errorf("create message: %w", err)
	}

	observability.IncLifecycleOp("send")
	return s.attachSender(ctx, msg)
}

// EditMessage rewrites a sender-owned message. A requester who does not own
// the message gets ErrNotFound, same as a missing id. The last-message
// pointer is untouched: it tracks message identity, not content.
func (s *Service) EditMessage(ctx context.Context, messageID int, requesterID int, content string) (models.MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.MessageView{}, fmt.Errorf("%w: empty content", ErrInvalidArgument)
	}

	msg, err := s.msgRepo.UpdateContent(ctx, messageID, requesterID, content)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.MessageView{}, ErrNotFound
	}
	if err != nil {
		return models.MessageView{}, fmt.Errorf("edit message: %w", err)
	}

	observability.IncLifecycleOp("edit")
	return s.attachSender(ctx, msg)
}

// DeleteMessage hard-removes a sender-owned message and recomputes the
// owning conversation's last-message pointer. Returns the removed message
// so callers can address the broadcast.
func (s *Service) DeleteMessage(ctx context.Context, messageID int, requesterID int) (models.Message, error) {
	// Resolve the conversation first so the mutation runs under its lock.
	// Ownership is re-checked atomically by the delete predicate.
	existing, err := s.msgRepo.GetMessage(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, ErrNotFound
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("load message: %w", err)
	}
	if existing.SenderID != requesterID {
		return models.Message{}, ErrNotFound
	}

	unlock := s.locks.lock(existing.ConversationID)
	defer unlock()

	msg, err := s.msgRepo.DeleteMessage(ctx, messageID, requesterID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, ErrNotFound
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("delete message: %w", err)
	}

	observability.IncLifecycleOp("delete")
	return msg, nil
}

// ListMessages returns one page of a conversation's messages for a
// participant, oldest-to-newest within the page.
func (s *Service) ListMessages(ctx context.Context, conversationID int, userID int, page int, limit int) ([]models.MessageView, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	member, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, ErrNotFound
	}

	msgs, err := s.msgRepo.ListMessages(ctx, conversationID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	// The page is fetched newest-first; flip it for display order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return s.attachSenders(ctx, msgs)
}

// CreateConversation creates a direct or group conversation. Direct
// conversations must resolve to exactly two distinct participants and are
// unique per pair; the uniqueness guard is enforced by the store, not by a
// check-then-insert.
func (s *Service) CreateConversation(ctx context.Context, creatorID int, otherParticipantIDs []int, name string, isGroup bool) (models.ConversationView, error) {
	if len(otherParticipantIDs) == 0 {
		return models.ConversationView{}, fmt.Errorf("%w: at least one participant is required", ErrInvalidArgument)
	}

	seen := map[int]struct{}{creatorID: {}}
	participants := []int{creatorID}
	for _, id := range otherParticipantIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, id)
	}

	if !isGroup && len(participants) != 2 {
		return models.ConversationView{}, fmt.Errorf("%w: direct conversation must have exactly 2 participants", ErrInvalidArgument)
	}

	var namePtr *string
	if isGroup && name != "" {
		namePtr = &name
	}

	conv, err := s.convRepo.CreateConversation(ctx, isGroup, namePtr, participants)
	if errors.Is(err, repositories.ErrDuplicateDirect) {
		return models.ConversationView{}, ErrConflict
	}
	if err != nil {
		return models.ConversationView{}, fmt.Errorf("create conversation: %w", err)
	}

	observability.IncLifecycleOp("create_conversation")
	return s.buildConversationView(ctx, conv)
}

// GetConversation returns a conversation view for a participant.
func (s *Service) GetConversation(ctx context.Context, conversationID int, userID int) (models.ConversationView, error) {
	conv, err := s.loadForParticipant(ctx, conversationID, userID)
	if err != nil {
		return models.ConversationView{}, err
	}
	return s.buildConversationView(ctx, conv)
}

// ListConversations returns the user's conversations ordered by most recent
// activity, with participants and last messages joined in.
func (s *Service) ListConversations(ctx context.Context, userID int) ([]models.ConversationView, error) {
	convs, err := s.convRepo.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	views := make([]models.ConversationView, 0, len(convs))
	for _, conv := range convs {
		view, err := s.buildConversationView(ctx, conv)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// LeaveConversation removes the user from a group conversation. When the
// participant set empties, the conversation and its messages are purged.
func (s *Service) LeaveConversation(ctx context.Context, conversationID int, userID int) error {
	conv, err := s.loadForParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !conv.IsGroup {
		return fmt.Errorf("%w: cannot leave a direct conversation", ErrInvalidArgument)
	}

	unlock := s.locks.lock(conversationID)
	defer unlock()

	if _, err := s.convRepo.RemoveParticipant(ctx, conversationID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotParticipant) {
			return ErrNotFound
		}
		return fmt.Errorf("leave conversation: %w", err)
	}

	observability.IncLifecycleOp("leave_conversation")
	return nil
}

// DeleteConversation purges a conversation and all its messages on behalf
// of a participant.
func (s *Service) DeleteConversation(ctx context.Context, conversationID int, requesterID int) error {
	if _, err := s.loadForParticipant(ctx, conversationID, requesterID); err != nil {
		return err
	}

	unlock := s.locks.lock(conversationID)
	defer unlock()

	if err := s.convRepo.DeleteConversation(ctx, conversationID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete conversation: %w", err)
	}

	observability.IncLifecycleOp("delete_conversation")
	return nil
}

// IsParticipant reports whether the user belongs to the conversation.
func (s *Service) IsParticipant(ctx context.Context, conversationID int, userID int) (bool, error) {
	member, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return member, nil
}

// ConversationIDsForUser lists the ids of every conversation the user
// participates in, used for the post-auth room bootstrap.
func (s *Service) ConversationIDsForUser(ctx context.Context, userID int) ([]int, error) {
	ids, err := s.convRepo.ListConversationIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversation ids: %w", err)
	}
	return ids, nil
}

func (s *Service) loadForParticipant(ctx context.Context, conversationID int, userID int) (models.Conversation, error) {
	conv, err := s.convRepo.GetConversation(ctx, conversationID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, ErrNotFound
	}
	if err != nil {
		return models.Conversation{}, fmt.Errorf("load conversation: %w", err)
	}

	member, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return models.Conversation{}, ErrNotFound
	}
	return conv, nil
}

func (s *Service) attachSender(ctx context.Context, msg models.Message) (models.MessageView, error) {
	views, err := s.attachSenders(ctx, []models.Message{msg})
	if err != nil {
		return models.MessageView{}, err
	}
	return views[0], nil
}

func (s *Service) attachSenders(ctx context.Context, msgs []models.Message) ([]models.MessageView, error) {
	senderIDs := make([]int, 0, len(msgs))
	seen := map[int]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	users, err := s.userRepo.GetUsersByIDs(ctx, senderIDs)
	if err != nil {
		return nil, fmt.Errorf("load senders: %w", err)
	}
	byID := map[int]models.UserSummary{}
	for _, u := range users {
		byID[u.ID] = u
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, models.MessageView{Message: m, Sender: byID[m.SenderID]})
	}
	return views, nil
}

func (s *Service) buildConversationView(ctx context.Context, conv models.Conversation) (models.ConversationView, error) {
	participantIDs, err := s.convRepo.ListParticipantIDs(ctx, conv.ID)
	if err != nil {
		return models.ConversationView{}, fmt.Errorf("load participants: %w", err)
	}
	participants, err := s.userRepo.GetUsersByIDs(ctx, participantIDs)
	if err != nil {
		return models.ConversationView{}, fmt.Errorf("load participant users: %w", err)
	}

	view := models.ConversationView{Conversation: conv, Participants: participants}
	if conv.LastMessageID != nil {
		msgs, err := s.msgRepo.GetMessagesByIDs(ctx, []int{*conv.LastMessageID})
		if err != nil {
			return models.ConversationView{}, fmt.Errorf("load last message: %w", err)
		}
		if len(msgs) == 1 {
			last, err := s.attachSender(ctx, msgs[0])
			if err != nil {
				return models.ConversationView{}, err
			}
			view.LastMessage = &last
		}
	}
	return view, nil
}
