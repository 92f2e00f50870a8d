package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/majstri/messaging/internal/realtime"
)

// MarkRead flips every unread message addressed to the user in the
// conversation to read, in one batched update. Idempotent: nothing
// unread is a no-op success.
//
// After a mutating call the contact list is invalidated twice: once
// immediately, and once after a confirmation poll observes the
// store's unread count drain (or the poll window closes). The poll
// replaces the fixed staggered timers the app historically used to
// ride out read-your-writes lag across the realtime layer.
func (s *Service) MarkRead(conversationID, userID uuid.UUID) error {
	if conversationID == uuid.Nil || userID == uuid.Nil {
		return nil
	}

	rows, err := s.store.MarkConversationRead(conversationID, userID)
	if err != nil {
		log.Error("Failed to mark conversation %s read for %s: %v", conversationID, userID, err)
		s.notify(userID, noticeMarkReadFailed)
		return err
	}

	if rows == 0 {
		return nil
	}

	log.Debug("Marked %d messages read in conversation %s", rows, conversationID)

	s.publish(realtime.Event{
		Table:          "messages",
		Type:           realtime.EventUpdate,
		ConversationID: conversationID,
		ReceiverID:     userID,
	})

	s.contactsChanged(userID)
	go s.confirmUnreadDrained(conversationID, userID)

	return nil
}

// confirmUnreadDrained polls the unread count with exponential
// backoff until it reaches zero or the window closes, then signals a
// final contact refresh.
func (s *Service) confirmUnreadDrained(conversationID, userID uuid.UUID) {
	deadline := time.Now().Add(s.confirmMax)
	delay := s.confirmBase

	for {
		count, err := s.store.CountUnread(conversationID, userID)
		if err == nil && count == 0 {
			break
		}
		if err != nil {
			log.Warn("Unread confirmation poll for conversation %s: %v", conversationID, err)
		}
		if time.Now().After(deadline) {
			log.Warn("Unread count for conversation %s did not drain within %s", conversationID, s.confirmMax)
			break
		}
		time.Sleep(delay)
		delay *= 2
	}

	s.contactsChanged(userID)
}
