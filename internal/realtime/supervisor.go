package realtime

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scope identifies which of the two subscriptions a handle backs.
type Scope int

const (
	// ScopeUser is the inbox-wide subscription: every message
	// insert/update addressed to the user, for any conversation.
	ScopeUser Scope = iota
	// ScopeConversation follows only the currently open conversation
	// and is torn down and recreated when that changes.
	ScopeConversation
)

type handleState int

const (
	stateSubscribing handleState = iota
	stateSubscribed
)

// handle is one live (or recovering) subscription. A handle that
// exhausts its retry budget is dropped from its slot entirely; the
// liveness sweep starts a fresh cycle for absent handles.
type handle struct {
	scope    Scope
	name     string
	filter   Filter
	state    handleState
	attempts int
	sub      Subscription
}

// Config tunes the supervisor's recovery behavior. Zero values take
// the production defaults.
type Config struct {
	MaxRetries    int           // retries per setup cycle
	RetryBackoff  time.Duration // linear: attempt × backoff
	SweepInterval time.Duration // liveness check period
}

func (c *Config) defaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 30 * time.Second
	}
}

// Supervisor owns one user-scoped and at most one conversation-scoped
// subscription for a session. EnsureActive is idempotent and is
// driven from three places: session start, scope changes, and the
// periodic liveness sweep that recovers channels which died without
// reporting an error.
type Supervisor struct {
	channel Channel
	userID  uuid.UUID
	onEvent func(Event)
	cfg     Config

	mu      sync.Mutex
	handles [2]*handle
	convID  uuid.UUID
	closed  bool
	done    chan struct{}
}

// NewSupervisor creates a supervisor for one user session. Events
// from both scopes are funneled into onEvent.
func NewSupervisor(channel Channel, userID uuid.UUID, onEvent func(Event), cfg Config) *Supervisor {
	cfg.defaults()
	return &Supervisor{
		channel: channel,
		userID:  userID,
		onEvent: onEvent,
		cfg:     cfg,
		done:    make(chan struct{}),
	}
}

// Start brings up the user-scoped subscription and the liveness
// sweep goroutine.
func (s *Supervisor) Start() {
	s.EnsureActive()
	go s.sweepLoop()
}

// SetConversation switches the conversation-scoped subscription to
// the given conversation. uuid.Nil closes it without a replacement.
func (s *Supervisor) SetConversation(conversationID uuid.UUID) {
	s.mu.Lock()
	if s.closed || s.convID == conversationID {
		s.mu.Unlock()
		return
	}
	s.convID = conversationID
	old := s.handles[ScopeConversation]
	s.handles[ScopeConversation] = nil
	s.mu.Unlock()

	teardown(old)
	s.EnsureActive()
}

// EnsureActive starts a subscription cycle for any expected handle
// that is currently absent. Calling it while handles are live or
// mid-retry is a no-op.
func (s *Supervisor) EnsureActive() {
	s.ensureActive(ScopeUser)
	s.ensureActive(ScopeConversation)
}

// Healthy reports whether each expected subscription is confirmed
// live. A conversation scope with no open conversation counts as
// healthy.
func (s *Supervisor) Healthy() (user, conversation bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user = s.handles[ScopeUser] != nil && s.handles[ScopeUser].state == stateSubscribed
	if s.convID == uuid.Nil {
		conversation = true
	} else {
		conversation = s.handles[ScopeConversation] != nil && s.handles[ScopeConversation].state == stateSubscribed
	}
	return user, conversation
}

// Close tears down both subscriptions and stops the sweep. Teardown
// errors are logged, not retried.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	user := s.handles[ScopeUser]
	conv := s.handles[ScopeConversation]
	s.handles[ScopeUser] = nil
	s.handles[ScopeConversation] = nil
	s.mu.Unlock()

	teardown(user)
	teardown(conv)
}

func (s *Supervisor) ensureActive(scope Scope) {
	s.mu.Lock()
	if s.closed || s.handles[scope] != nil {
		s.mu.Unlock()
		return
	}

	var filter Filter
	switch scope {
	case ScopeUser:
		filter = Filter{Table: "messages", Column: "receiver_id", Equals: s.userID}
	case ScopeConversation:
		if s.convID == uuid.Nil {
			s.mu.Unlock()
			return
		}
		filter = Filter{Table: "messages", Column: "conversation_id", Equals: s.convID}
	}

	h := &handle{
		scope:  scope,
		name:   channelName(filter),
		filter: filter,
		state:  stateSubscribing,
	}
	s.handles[scope] = h
	s.mu.Unlock()

	s.subscribe(h)
}

func (s *Supervisor) subscribe(h *handle) {
	sub, err := s.channel.Subscribe(h.name, h.filter, s.dispatch, func(st Status) {
		s.onStatus(h, st)
	})

	s.mu.Lock()
	if s.handles[h.scope] != h || s.closed {
		// Scope changed or session closed while subscribing.
		s.mu.Unlock()
		if sub != nil {
			if uerr := sub.Unsubscribe(); uerr != nil {
				log.Warn("Teardown of stale channel %s failed: %v", h.name, uerr)
			}
		}
		return
	}

	if err != nil {
		log.Warn("Subscription %s failed: %v", h.name, err)
		s.retryLocked(h)
		s.mu.Unlock()
		return
	}

	h.sub = sub
	s.mu.Unlock()
}

func (s *Supervisor) onStatus(h *handle, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handles[h.scope] != h || s.closed {
		return
	}

	switch st {
	case StatusSubscribed:
		h.state = stateSubscribed
		log.Debug("Channel %s subscribed", h.name)
	case StatusError:
		log.Warn("Channel %s reported error", h.name)
		if h.sub != nil {
			sub := h.sub
			h.sub = nil
			go func() {
				if err := sub.Unsubscribe(); err != nil {
					log.Warn("Teardown of failed channel %s: %v", h.name, err)
				}
			}()
		}
		s.retryLocked(h)
	case StatusClosed:
		// Channel went away underneath us. Leave the slot absent;
		// the next sweep starts a fresh cycle.
		s.handles[h.scope] = nil
	}
}

// retryLocked schedules the next attempt of the current setup cycle,
// or abandons the slot once the budget is spent. Caller holds s.mu.
func (s *Supervisor) retryLocked(h *handle) {
	if h.attempts >= s.cfg.MaxRetries {
		log.Warn("Channel %s exhausted %d retries, leaving inactive until next sweep", h.name, s.cfg.MaxRetries)
		s.handles[h.scope] = nil
		return
	}

	h.attempts++
	h.state = stateSubscribing
	h.name = channelName(h.filter)
	delay := time.Duration(h.attempts) * s.cfg.RetryBackoff
	log.Debug("Retrying channel %s in %s (attempt %d)", h.name, delay, h.attempts)

	time.AfterFunc(delay, func() {
		s.mu.Lock()
		stale := s.handles[h.scope] != h || s.closed
		s.mu.Unlock()
		if !stale {
			s.subscribe(h)
		}
	})
}

func (s *Supervisor) dispatch(e Event) {
	if s.onEvent != nil {
		s.onEvent(e)
	}
}

func (s *Supervisor) sweepLoop() {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.EnsureActive()
		}
	}
}

func teardown(h *handle) {
	if h == nil || h.sub == nil {
		return
	}
	if err := h.sub.Unsubscribe(); err != nil {
		log.Warn("Teardown of channel %s failed: %v", h.name, err)
	}
}

// channelName salts the subscription name with time and randomness so
// a remount never collides with a channel the backend has not fully
// released yet.
func channelName(f Filter) string {
	return fmt.Sprintf("%s:%s:%s:%d-%04d",
		f.Table, f.Column, f.Equals, time.Now().UnixMilli(), rand.Intn(10000))
}
