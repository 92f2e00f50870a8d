package database

import (
	"github.com/google/uuid"

	"github.com/majstri/messaging/internal/models"
)

// Store is the relational-store boundary the messaging core depends
// on. The production implementation runs against the platform's
// Postgres; tests substitute a mock.
type Store interface {
	// Conversation methods
	CreateConversation(customerID, craftsmanID uuid.UUID) (*models.Conversation, error)
	GetConversationByID(id uuid.UUID) (*models.Conversation, error)
	FindConversationByPair(customerID, craftsmanID uuid.UUID) (*models.Conversation, error)
	GetConversationsForUser(userID uuid.UUID, role models.Role) ([]*models.Conversation, error)
	TouchConversation(id uuid.UUID) error
	SetConversationArchived(id uuid.UUID, role models.Role, archived bool) error
	SetConversationDeleted(id uuid.UUID, role models.Role) error

	// Message methods
	CreateMessage(conversationID, senderID, receiverID uuid.UUID, content string, metadata *models.Metadata) (*models.Message, error)
	GetMessages(conversationID uuid.UUID) ([]*models.Message, error)
	LatestMessage(conversationID uuid.UUID) (*models.Message, error)
	CountUnread(conversationID, receiverID uuid.UUID) (int, error)
	MarkConversationRead(conversationID, receiverID uuid.UUID) (int64, error)

	// Profile methods
	GetProfile(id uuid.UUID, role models.Role) (*models.Profile, error)

	Close() error
}
