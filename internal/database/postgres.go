package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/majstri/messaging/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("conversation already exists")
	ErrMessageNotFound      = errors.New("message not found")
	ErrProfileNotFound      = errors.New("profile not found")
)

const uniqueViolation = "23505"

type PostgresStore struct {
	*sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{db}, nil
}

// CreateConversation inserts a new conversation for the pair. A
// unique index guards the active pair; a concurrent insert of the
// same pair surfaces as ErrConversationExists so the caller can fall
// back to lookup.
func (db *PostgresStore) CreateConversation(customerID, craftsmanID uuid.UUID) (*models.Conversation, error) {
	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:          uuid.New(),
		CustomerID:  customerID,
		CraftsmanID: craftsmanID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := db.Exec(
		`INSERT INTO conversations (id, customer_id, craftsman_id, created_at, updated_at,
		        archived_by_customer, archived_by_craftsman, deleted_by_customer, deleted_by_craftsman)
		 VALUES ($1, $2, $3, $4, $5, false, false, false, false)`,
		conv.ID, conv.CustomerID, conv.CraftsmanID, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrConversationExists
		}
		return nil, err
	}

	return conv, nil
}

const conversationColumns = `id, customer_id, craftsman_id, created_at, updated_at,
	archived_by_customer, archived_by_craftsman, deleted_by_customer, deleted_by_craftsman`

func scanConversation(row interface{ Scan(...any) error }) (*models.Conversation, error) {
	var conv models.Conversation
	err := row.Scan(
		&conv.ID, &conv.CustomerID, &conv.CraftsmanID, &conv.CreatedAt, &conv.UpdatedAt,
		&conv.ArchivedByCustomer, &conv.ArchivedByCraftsman,
		&conv.DeletedByCustomer, &conv.DeletedByCraftsman,
	)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (db *PostgresStore) GetConversationByID(id uuid.UUID) (*models.Conversation, error) {
	conv, err := scanConversation(db.QueryRow(
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// FindConversationByPair looks up the active conversation for a
// (customer, craftsman) pair, ignoring ones both sides have deleted.
func (db *PostgresStore) FindConversationByPair(customerID, craftsmanID uuid.UUID) (*models.Conversation, error) {
	conv, err := scanConversation(db.QueryRow(
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE customer_id = $1 AND craftsman_id = $2
		   AND NOT (deleted_by_customer AND deleted_by_craftsman)
		 ORDER BY updated_at DESC LIMIT 1`,
		customerID, craftsmanID))
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversationsForUser returns the user's conversations, skipping
// ones the user's own side flagged as deleted. The counterpart's
// flags do not hide a conversation from this user.
func (db *PostgresStore) GetConversationsForUser(userID uuid.UUID, role models.Role) ([]*models.Conversation, error) {
	var query string
	if role == models.RoleCustomer {
		query = `SELECT ` + conversationColumns + ` FROM conversations
			 WHERE customer_id = $1 AND NOT deleted_by_customer
			 ORDER BY updated_at DESC`
	} else {
		query = `SELECT ` + conversationColumns + ` FROM conversations
			 WHERE craftsman_id = $1 AND NOT deleted_by_craftsman
			 ORDER BY updated_at DESC`
	}

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		conversations = append(conversations, conv)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return conversations, nil
}

func (db *PostgresStore) TouchConversation(id uuid.UUID) error {
	result, err := db.Exec("UPDATE conversations SET updated_at = $1 WHERE id = $2",
		time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrConversationNotFound
	}

	return nil
}

func (db *PostgresStore) SetConversationArchived(id uuid.UUID, role models.Role, archived bool) error {
	column := "archived_by_customer"
	if role == models.RoleCraftsman {
		column = "archived_by_craftsman"
	}

	result, err := db.Exec(
		"UPDATE conversations SET "+column+" = $1, updated_at = $2 WHERE id = $3",
		archived, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrConversationNotFound
	}

	return nil
}

// SetConversationDeleted flags the conversation as deleted for one
// side. Rows are never hard-deleted.
func (db *PostgresStore) SetConversationDeleted(id uuid.UUID, role models.Role) error {
	column := "deleted_by_customer"
	if role == models.RoleCraftsman {
		column = "deleted_by_craftsman"
	}

	result, err := db.Exec(
		"UPDATE conversations SET "+column+" = true, updated_at = $1 WHERE id = $2",
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrConversationNotFound
	}

	return nil
}

func (db *PostgresStore) CreateMessage(conversationID, senderID, receiverID uuid.UUID, content string, metadata *models.Metadata) (*models.Message, error) {
	message := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
		Read:           false,
	}

	var raw any
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
		message.RawMetadata = encoded
		raw = encoded
	}

	_, err := db.Exec(
		`INSERT INTO messages (id, conversation_id, sender_id, receiver_id, content, metadata, created_at, read)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		message.ID, message.ConversationID, message.SenderID, message.ReceiverID,
		message.Content, raw, message.CreatedAt, message.Read,
	)
	if err != nil {
		return nil, err
	}

	return message, nil
}

const messageColumns = "id, conversation_id, sender_id, receiver_id, content, metadata, created_at, read"

func scanMessage(row interface{ Scan(...any) error }) (*models.Message, error) {
	var msg models.Message
	var raw []byte

	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
		&msg.Content, &raw, &msg.CreatedAt, &msg.Read)
	if err != nil {
		return nil, err
	}

	msg.RawMetadata = raw
	return &msg, nil
}

// GetMessages returns the conversation's messages oldest first.
func (db *PostgresStore) GetMessages(conversationID uuid.UUID) ([]*models.Message, error) {
	rows, err := db.Query(
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (db *PostgresStore) LatestMessage(conversationID uuid.UUID) (*models.Message, error) {
	msg, err := scanMessage(db.QueryRow(
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT 1`,
		conversationID,
	))
	if err == sql.ErrNoRows {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// CountUnread counts without loading rows; the contact list computes
// badges for every conversation on each refresh.
func (db *PostgresStore) CountUnread(conversationID, receiverID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND receiver_id = $2 AND read = false",
		conversationID, receiverID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MarkConversationRead flips every unread message addressed to the
// receiver in one statement and reports how many rows changed. Zero
// rows is a normal outcome, not an error.
func (db *PostgresStore) MarkConversationRead(conversationID, receiverID uuid.UUID) (int64, error) {
	result, err := db.Exec(
		"UPDATE messages SET read = true WHERE conversation_id = $1 AND receiver_id = $2 AND read = false",
		conversationID, receiverID,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// GetProfile resolves display identity from the role-appropriate
// profile table.
func (db *PostgresStore) GetProfile(id uuid.UUID, role models.Role) (*models.Profile, error) {
	table := "customer_profiles"
	if role == models.RoleCraftsman {
		table = "craftsman_profiles"
	}

	var profile models.Profile
	var avatarURL sql.NullString

	err := db.QueryRow(
		`SELECT id, display_name, avatar_url, created_at FROM `+table+` WHERE id = $1`,
		id).Scan(&profile.ID, &profile.DisplayName, &avatarURL, &profile.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	if avatarURL.Valid {
		profile.AvatarURL = avatarURL.String
	}
	profile.Role = role

	return &profile, nil
}

func (db *PostgresStore) Close() error {
	return db.DB.Close()
}
