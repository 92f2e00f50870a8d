package chat

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/majstri/messaging/internal/database"
	"github.com/majstri/messaging/internal/models"
)

// LoadContacts derives the user's contact list: one entry per
// counterpart with display identity, last-message preview and unread
// count. Set semantics; the caller sorts. A user with no
// conversations gets an empty list, as does a conversation fetch
// failure (with a transient notice).
func (s *Service) LoadContacts(userID uuid.UUID, role models.Role) []*models.Contact {
	conversations, err := s.store.GetConversationsForUser(userID, role)
	if err != nil {
		log.Error("Failed to load conversations for %s: %v", userID, err)
		s.notify(userID, noticeLoadContactsFailed)
		return []*models.Contact{}
	}

	if len(conversations) == 0 {
		return []*models.Contact{}
	}

	// Profile, preview and unread resolution are independent per
	// conversation; run them concurrently.
	contacts := make([]*models.Contact, len(conversations))
	var wg sync.WaitGroup
	for i, conv := range conversations {
		wg.Add(1)
		go func(i int, conv *models.Conversation) {
			defer wg.Done()
			contacts[i] = s.buildContact(conv, userID, role)
		}(i, conv)
	}
	wg.Wait()

	return dedupeByCounterpart(contacts)
}

// buildContact assembles one contact. Lookup failures degrade rather
// than drop the conversation: a missing counterpart profile becomes a
// placeholder identity, a missing last message falls back to the
// conversation's creation time.
func (s *Service) buildContact(conv *models.Conversation, userID uuid.UUID, role models.Role) *models.Contact {
	counterpartID := conv.CounterpartID(userID)
	counterpartRole := role.Counterpart()

	contact := &models.Contact{
		UserID:         counterpartID,
		Role:           counterpartRole,
		ConversationID: conv.ID,
	}

	profile, err := s.store.GetProfile(counterpartID, counterpartRole)
	if err != nil {
		if !errors.Is(err, database.ErrProfileNotFound) {
			log.Warn("Profile lookup for %s failed: %v", counterpartID, err)
		}
		contact.Name = placeholderUnknownUser
	} else {
		contact.Name = profile.DisplayName
		contact.AvatarURL = profile.AvatarURL
		if contact.Name == "" {
			contact.Name = placeholderUnknownUser
		}
	}

	last, err := s.store.LatestMessage(conv.ID)
	switch {
	case err == nil:
		contact.LastMessage = last.Content
		contact.LastMessageTime = last.CreatedAt
	case errors.Is(err, database.ErrMessageNotFound):
		contact.LastMessage = placeholderNoMessages
		contact.LastMessageTime = conv.CreatedAt
	default:
		log.Warn("Latest message lookup for conversation %s failed: %v", conv.ID, err)
		contact.LastMessage = placeholderNoMessages
		contact.LastMessageTime = conv.CreatedAt
	}

	count, err := s.store.CountUnread(conv.ID, userID)
	if err != nil {
		log.Warn("Unread count for conversation %s failed: %v", conv.ID, err)
	} else {
		contact.UnreadCount = count
	}

	return contact
}

// dedupeByCounterpart keeps one contact per counterpart. Duplicate
// conversations with the same counterpart should not exist, but the
// reduction handles them by keeping the most recent last-message
// timestamp. Ties break on conversation id so the result does not
// depend on goroutine completion order.
func dedupeByCounterpart(contacts []*models.Contact) []*models.Contact {
	byCounterpart := make(map[uuid.UUID]*models.Contact, len(contacts))
	order := make([]uuid.UUID, 0, len(contacts))

	for _, c := range contacts {
		existing, ok := byCounterpart[c.UserID]
		if !ok {
			byCounterpart[c.UserID] = c
			order = append(order, c.UserID)
			continue
		}
		if c.LastMessageTime.After(existing.LastMessageTime) ||
			(c.LastMessageTime.Equal(existing.LastMessageTime) &&
				c.ConversationID.String() > existing.ConversationID.String()) {
			byCounterpart[c.UserID] = c
		}
	}

	result := make([]*models.Contact, 0, len(byCounterpart))
	for _, id := range order {
		result = append(result, byCounterpart[id])
	}
	return result
}
