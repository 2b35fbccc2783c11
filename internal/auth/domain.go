package auth

import (
	"time"

	"github.com/google/uuid"
)

// RoleAdmin is the single privileged role. Authorization is data: the roles
// table decides who holds it, not a compiled-in account ID.
const RoleAdmin = "admin"

// User is an authenticated account.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Photo     string    `json:"photo" db:"photo"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Credential holds a user's login secret.
type Credential struct {
	UserID       uuid.UUID `db:"user_id"`
	PasswordHash string    `db:"password_hash"`
	Salt         string    `db:"salt"`
}

// Session is the resolved state of a signed-in request.
type Session struct {
	User  *User    `json:"user"`
	Roles []string `json:"roles"`
}

// IsAdmin reports whether the session carries the admin role.
func (s *Session) IsAdmin() bool {
	if s == nil {
		return false
	}
	for _, r := range s.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// UserRegisteredEvent is recorded when a new account is created.
type UserRegisteredEvent struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// RoleGrantedEvent is recorded when a role is granted to a user.
type RoleGrantedEvent struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}
