package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message represents a chat message in the system. Read is one-way:
// it flips false→true exactly once, and only the receiver's side
// performs that mutation.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	ReceiverID     uuid.UUID `json:"receiver_id"`
	Content        string    `json:"content"`
	Metadata       *Metadata `json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`

	// RawMetadata is the stored column as-is. The store does not
	// interpret it; the accessor runs it through the codec.
	RawMetadata json.RawMessage `json:"-"`
}

// SendRequest is the structure for message creation requests. The
// conversation id is optional: the first message of a pairing omits
// it and the conversation is created lazily.
type SendRequest struct {
	CounterpartID  uuid.UUID `json:"counterpart_id" binding:"required"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Content        string    `json:"content" binding:"required,min=1"`
	Metadata       *Metadata `json:"metadata"`
}

// SendResult is what a successful send returns to the client: the
// stored message plus the resolved conversation id, which the caller
// attaches back onto any contact placeholder that lacked one.
type SendResult struct {
	Message        *Message  `json:"message"`
	ConversationID uuid.UUID `json:"conversation_id"`
}
