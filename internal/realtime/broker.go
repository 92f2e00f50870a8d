package realtime

import (
	"errors"
	"sync"

	"github.com/majstri/messaging/internal/logger"
)

var log = logger.New("realtime")

// Broker is the in-process Channel implementation. Mutation paths
// publish into it; one subscription exists per supervisor handle.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]*brokerSub
}

type brokerSub struct {
	broker   *Broker
	name     string
	filter   Filter
	onEvent  func(Event)
	onStatus func(Status)
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]*brokerSub)}
}

// Subscribe registers a subscription under a unique name. The
// subscribed status is reported asynchronously, matching the hosted
// channel's callback-driven lifecycle.
func (b *Broker) Subscribe(name string, filter Filter, onEvent func(Event), onStatus func(Status)) (Subscription, error) {
	if name == "" {
		return nil, errors.New("subscription name required")
	}

	b.mu.Lock()
	if _, exists := b.subs[name]; exists {
		b.mu.Unlock()
		return nil, errors.New("subscription name already in use: " + name)
	}
	sub := &brokerSub{broker: b, name: name, filter: filter, onEvent: onEvent, onStatus: onStatus}
	b.subs[name] = sub
	b.mu.Unlock()

	log.Debug("Subscribed channel %s on %s.%s", name, filter.Table, filter.Column)

	if onStatus != nil {
		go onStatus(StatusSubscribed)
	}

	return sub, nil
}

// Publish delivers the event to every matching subscription.
// Delivery is synchronous in the caller's goroutine; handlers must
// not block.
func (b *Broker) Publish(e Event) {
	b.mu.RLock()
	matched := make([]*brokerSub, 0, 4)
	for _, sub := range b.subs {
		if sub.filter.Matches(e) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		if sub.onEvent != nil {
			sub.onEvent(e)
		}
	}
}

func (s *brokerSub) Unsubscribe() error {
	s.broker.mu.Lock()
	_, existed := s.broker.subs[s.name]
	delete(s.broker.subs, s.name)
	s.broker.mu.Unlock()

	if !existed {
		return nil
	}

	log.Debug("Unsubscribed channel %s", s.name)
	if s.onStatus != nil {
		go s.onStatus(StatusClosed)
	}
	return nil
}
