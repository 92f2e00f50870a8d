package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact is the derived, per-counterpart summary shown in the inbox
// list. It is recomputed on demand from conversations, messages and
// profiles; nothing persists it.
type Contact struct {
	UserID          uuid.UUID `json:"user_id"`
	Name            string    `json:"name"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	Role            Role      `json:"role"`
	ConversationID  uuid.UUID `json:"conversation_id"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}
