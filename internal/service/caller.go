package service

import (
	"github.com/google/uuid"

	"mkoval/runcoach-app/internal/domain"
)

// Caller is the already-authenticated identity the presentation layer passes
// into every authorization-checked operation. It always comes from the
// verified token, never from the request body.
type Caller struct {
	ID   uuid.UUID
	Role domain.Role
}

func (c Caller) IsAdmin() bool { return c.Role == domain.RoleAdmin }

// Is reports whether the caller is the given user.
func (c Caller) Is(userID uuid.UUID) bool { return c.ID == userID }
