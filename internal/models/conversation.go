package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation pairs one customer with one craftsman. At most one
// active conversation exists per pair; conversations are created
// lazily on first message and never hard-deleted, only flagged.
type Conversation struct {
	ID                  uuid.UUID `json:"id"`
	CustomerID          uuid.UUID `json:"customer_id"`
	CraftsmanID         uuid.UUID `json:"craftsman_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	ArchivedByCustomer  bool      `json:"archived_by_customer"`
	ArchivedByCraftsman bool      `json:"archived_by_craftsman"`
	DeletedByCustomer   bool      `json:"deleted_by_customer"`
	DeletedByCraftsman  bool      `json:"deleted_by_craftsman"`
}

// CounterpartID returns the participant opposite the given user.
func (c *Conversation) CounterpartID(userID uuid.UUID) uuid.UUID {
	if c.CustomerID == userID {
		return c.CraftsmanID
	}
	return c.CustomerID
}

// DeletedBy reports whether the side with the given role flagged the
// conversation as deleted.
func (c *Conversation) DeletedBy(role Role) bool {
	if role == RoleCustomer {
		return c.DeletedByCustomer
	}
	return c.DeletedByCraftsman
}
