package chat

import (
	"github.com/google/uuid"

	"github.com/majstri/messaging/internal/metadata"
	"github.com/majstri/messaging/internal/models"
)

// LoadMessages returns the conversation's history, oldest first, for
// the given viewer. A zero conversation id yields an empty sequence,
// as does a fetch failure: the viewer gets a transient notice and the
// error detail stays in the log. Callers cannot distinguish "no
// messages" from "fetch failed" here, by contract.
//
// Unread messages addressed to the viewer are handed to MarkRead as
// one batch, asynchronously, so every read-state change goes through
// the one audited path.
func (s *Service) LoadMessages(conversationID, viewerID uuid.UUID) []*models.Message {
	if conversationID == uuid.Nil {
		return []*models.Message{}
	}

	messages, err := s.store.GetMessages(conversationID)
	if err != nil {
		log.Error("Failed to load messages for conversation %s: %v", conversationID, err)
		s.notify(viewerID, noticeLoadMessagesFailed)
		return []*models.Message{}
	}

	unread := false
	for _, msg := range messages {
		msg.Metadata = metadata.Parse(msg.RawMetadata)
		if msg.Metadata == nil {
			msg.Metadata = metadata.InferFromLegacyText(msg.Content)
		}
		if msg.ReceiverID == viewerID && !msg.Read {
			unread = true
		}
	}

	if unread {
		go func() {
			if err := s.MarkRead(conversationID, viewerID); err != nil {
				log.Warn("Deferred mark-read for conversation %s failed: %v", conversationID, err)
			}
		}()
	}

	if messages == nil {
		messages = []*models.Message{}
	}
	return messages
}
