package chat

import (
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/majstri/messaging/internal/database"
	"github.com/majstri/messaging/internal/models"
	"github.com/majstri/messaging/internal/realtime"
)

// MockStore implements database.Store for testing.
type MockStore struct {
	mock.Mock
}

var _ database.Store = (*MockStore)(nil)

func (m *MockStore) CreateConversation(customerID, craftsmanID uuid.UUID) (*models.Conversation, error) {
	args := m.Called(customerID, craftsmanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockStore) GetConversationByID(id uuid.UUID) (*models.Conversation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockStore) FindConversationByPair(customerID, craftsmanID uuid.UUID) (*models.Conversation, error) {
	args := m.Called(customerID, craftsmanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockStore) GetConversationsForUser(userID uuid.UUID, role models.Role) ([]*models.Conversation, error) {
	args := m.Called(userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockStore) TouchConversation(id uuid.UUID) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStore) SetConversationArchived(id uuid.UUID, role models.Role, archived bool) error {
	args := m.Called(id, role, archived)
	return args.Error(0)
}

func (m *MockStore) SetConversationDeleted(id uuid.UUID, role models.Role) error {
	args := m.Called(id, role)
	return args.Error(0)
}

func (m *MockStore) CreateMessage(conversationID, senderID, receiverID uuid.UUID, content string, metadata *models.Metadata) (*models.Message, error) {
	args := m.Called(conversationID, senderID, receiverID, content, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStore) GetMessages(conversationID uuid.UUID) ([]*models.Message, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *MockStore) LatestMessage(conversationID uuid.UUID) (*models.Message, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStore) CountUnread(conversationID, receiverID uuid.UUID) (int, error) {
	args := m.Called(conversationID, receiverID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) MarkConversationRead(conversationID, receiverID uuid.UUID) (int64, error) {
	args := m.Called(conversationID, receiverID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetProfile(id uuid.UUID, role models.Role) (*models.Profile, error) {
	args := m.Called(id, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// recordingSignals captures notices and contact invalidations.
type recordingSignals struct {
	mu       sync.Mutex
	notices  []string
	contacts int
}

func (r *recordingSignals) Notice(userID uuid.UUID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, text)
}

func (r *recordingSignals) ContactsChanged(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts++
}

func (r *recordingSignals) noticeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func (r *recordingSignals) contactsChangedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contacts
}

// recordingPublisher captures published realtime events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingPublisher) Publish(e realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) published() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.Event(nil), r.events...)
}
