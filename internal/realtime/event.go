// Package realtime carries row-change events from the mutation paths
// to live client sessions. The channel contract mirrors the hosted
// pub/sub it stands in for: subscriptions filter insert/update events
// by a single equality predicate on a named table column and report
// lifecycle status through a callback.
package realtime

import (
	"github.com/google/uuid"
)

// EventType classifies a row change.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
)

// Event describes one row-level change on the messages table.
type Event struct {
	Table          string    `json:"table"`
	Type           EventType `json:"type"`
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	ReceiverID     uuid.UUID `json:"receiver_id"`
}

// Filter is the equality predicate a subscription listens on.
type Filter struct {
	Table  string
	Column string
	Equals uuid.UUID
}

// Matches reports whether the event satisfies the predicate.
func (f Filter) Matches(e Event) bool {
	if f.Table != e.Table {
		return false
	}
	switch f.Column {
	case "receiver_id":
		return e.ReceiverID == f.Equals
	case "conversation_id":
		return e.ConversationID == f.Equals
	default:
		return false
	}
}

// Status reports subscription lifecycle transitions.
type Status int

const (
	StatusSubscribed Status = iota
	StatusError
	StatusClosed
)

// Channel is the pub/sub boundary. Subscribe registers a named
// subscription; events and lifecycle changes arrive via callbacks,
// which the channel may invoke from its own goroutines.
type Channel interface {
	Subscribe(name string, filter Filter, onEvent func(Event), onStatus func(Status)) (Subscription, error)
}

// Subscription is a live registration that can be torn down.
type Subscription interface {
	Unsubscribe() error
}

// Publisher is the write side of the channel, fed by the mutation
// paths after every message insert or read-state update.
type Publisher interface {
	Publish(e Event)
}
