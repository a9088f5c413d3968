package models

import "github.com/google/uuid"

const (
	// Regular platform user, may operate on its own credits only
	RoleUser = "user"

	// Internal platform components (workflow callbacks and such),
	// may operate on any user's credits
	RoleService = "service"
)

// Caller is the authenticated identity resolved from the access token
type Caller struct {
	ID   uuid.UUID
	Role string
}

// MayActOn reports whether the caller is allowed to operate on the
// given user's credits
func (c Caller) MayActOn(userID uuid.UUID) bool {
	return c.ID == userID || c.Role == RoleService
}
