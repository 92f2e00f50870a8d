package chat

import (
	"github.com/google/uuid"

	"github.com/majstri/messaging/internal/models"
)

// Archive sets or clears the caller's archive flag on a conversation.
// Each side archives independently; the counterpart's view is
// unaffected.
func (s *Service) Archive(conversationID, userID uuid.UUID, role models.Role, archived bool) error {
	if err := s.store.SetConversationArchived(conversationID, role, archived); err != nil {
		log.Error("Failed to set archive flag on conversation %s: %v", conversationID, err)
		return err
	}
	s.contactsChanged(userID)
	return nil
}

// Delete flags the conversation as deleted for the caller's side. The
// row stays; only this user's contact list stops showing it.
func (s *Service) Delete(conversationID, userID uuid.UUID, role models.Role) error {
	if err := s.store.SetConversationDeleted(conversationID, role); err != nil {
		log.Error("Failed to flag conversation %s deleted: %v", conversationID, err)
		return err
	}
	s.contactsChanged(userID)
	return nil
}
