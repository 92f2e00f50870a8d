package models

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes the two sides of the marketplace.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleCraftsman Role = "craftsman"
)

// Counterpart returns the opposite role.
func (r Role) Counterpart() Role {
	if r == RoleCustomer {
		return RoleCraftsman
	}
	return RoleCustomer
}

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleCraftsman
}

// Profile is the display identity of a user, resolved from the
// role-appropriate profile table. Identity itself (auth, sessions)
// lives with the external identity provider; we only ever read
// profiles for name/avatar resolution.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}
