// Package chat implements the messaging core: loading conversation
// history, deriving the contact list, flipping read state, and
// sending messages with lazy conversation creation. Every operation
// takes the acting user's id (and role where it matters) explicitly;
// nothing in here reads ambient session state.
package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/majstri/messaging/internal/database"
	"github.com/majstri/messaging/internal/logger"
	"github.com/majstri/messaging/internal/realtime"
)

var log = logger.New("chat")

// User-facing notices are Slovak; they surface as transient toasts.
const (
	noticeLoadMessagesFailed = "Nepodarilo sa načítať správy"
	noticeLoadContactsFailed = "Nepodarilo sa načítať kontakty"
	noticeSendFailed         = "Správu sa nepodarilo odoslať"
	noticeMarkReadFailed     = "Nepodarilo sa označiť správy ako prečítané"

	placeholderUnknownUser = "Neznámy užívateľ"
	placeholderNoMessages  = "Zatiaľ žiadne správy"
)

// Signals is the outbound surface toward live client sessions:
// transient notices and contact-list invalidation. Implementations
// must not block; delivery is best effort.
type Signals interface {
	Notice(userID uuid.UUID, text string)
	ContactsChanged(userID uuid.UUID)
}

// Service wires the messaging core to its collaborators.
type Service struct {
	store     database.Store
	signals   Signals
	publisher realtime.Publisher

	// Confirmation poll for read-your-writes lag after the batched
	// read-state update. Mirrors the spread of the staggered refresh
	// timers this poll replaced.
	confirmBase time.Duration
	confirmMax  time.Duration
}

// NewService creates the messaging service. signals and publisher may
// be nil in tests that do not exercise them.
func NewService(store database.Store, signals Signals, publisher realtime.Publisher) *Service {
	return &Service{
		store:       store,
		signals:     signals,
		publisher:   publisher,
		confirmBase: 100 * time.Millisecond,
		confirmMax:  3 * time.Second,
	}
}

// SetConfirmWindow overrides the confirmation poll timing.
func (s *Service) SetConfirmWindow(base, max time.Duration) {
	s.confirmBase = base
	s.confirmMax = max
}

func (s *Service) notify(userID uuid.UUID, text string) {
	if s.signals != nil {
		s.signals.Notice(userID, text)
	}
}

func (s *Service) contactsChanged(userID uuid.UUID) {
	if s.signals != nil {
		s.signals.ContactsChanged(userID)
	}
}

func (s *Service) publish(e realtime.Event) {
	if s.publisher != nil {
		s.publisher.Publish(e)
	}
}
