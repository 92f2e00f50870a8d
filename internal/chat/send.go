package chat

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/majstri/messaging/internal/database"
	"github.com/majstri/messaging/internal/models"
	"github.com/majstri/messaging/internal/realtime"
)

var (
	ErrEmptyContent       = errors.New("message content is empty")
	ErrMissingCounterpart = errors.New("counterpart id is required")
	ErrNotAuthenticated   = errors.New("sender is not authenticated")
)

// Send appends a message for the (sender, counterpart) pair, creating
// the conversation lazily on the first message. Conversation creation
// is create-or-get: a uniqueness conflict from a concurrent first
// message falls back to looking up the existing row instead of
// failing. Returns the stored message and the resolved conversation
// id so the caller can attach it to a contact placeholder.
func (s *Service) Send(senderID uuid.UUID, role models.Role, req *models.SendRequest) (*models.SendResult, error) {
	if senderID == uuid.Nil {
		log.Warn("Send rejected: unauthenticated sender")
		return nil, ErrNotAuthenticated
	}
	if req.CounterpartID == uuid.Nil {
		log.Warn("Send rejected: missing counterpart")
		return nil, ErrMissingCounterpart
	}
	if strings.TrimSpace(req.Content) == "" {
		log.Warn("Send rejected: empty content from %s", senderID)
		return nil, ErrEmptyContent
	}

	conversationID := req.ConversationID
	if conversationID == uuid.Nil {
		conv, err := s.resolveConversation(senderID, role, req.CounterpartID)
		if err != nil {
			log.Error("Failed to resolve conversation for %s -> %s: %v", senderID, req.CounterpartID, err)
			s.notify(senderID, noticeSendFailed)
			return nil, err
		}
		conversationID = conv.ID
	}

	message, err := s.store.CreateMessage(conversationID, senderID, req.CounterpartID, req.Content, req.Metadata)
	if err != nil {
		log.Error("Failed to store message in conversation %s: %v", conversationID, err)
		s.notify(senderID, noticeSendFailed)
		return nil, err
	}

	// Best effort: a stale updated_at only affects inbox ordering.
	if err := s.store.TouchConversation(conversationID); err != nil {
		log.Warn("Failed to touch conversation %s: %v", conversationID, err)
	}

	s.publish(realtime.Event{
		Table:          "messages",
		Type:           realtime.EventInsert,
		MessageID:      message.ID,
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     req.CounterpartID,
	})

	return &models.SendResult{Message: message, ConversationID: conversationID}, nil
}

// resolveConversation creates the pair's conversation, falling back
// to lookup when a concurrent sender won the insert.
func (s *Service) resolveConversation(senderID uuid.UUID, role models.Role, counterpartID uuid.UUID) (*models.Conversation, error) {
	customerID, craftsmanID := senderID, counterpartID
	if role == models.RoleCraftsman {
		customerID, craftsmanID = counterpartID, senderID
	}

	conv, err := s.store.CreateConversation(customerID, craftsmanID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, database.ErrConversationExists) {
		return nil, err
	}

	return s.store.FindConversationByPair(customerID, craftsmanID)
}
