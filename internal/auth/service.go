package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// User-facing sign-in failures. Handlers map everything else to a generic
// message so internal detail never leaks to the form.
var (
	ErrInvalidEmail       = errors.New("please enter a valid email address")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRateLimited        = errors.New("too many failed attempts, try again later")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// Service defines account and session operations.
type Service interface {
	Register(ctx context.Context, email, name, password string) (*User, error)
	SignIn(ctx context.Context, email, password string) (token string, session *Session, err error)
	ResolveToken(ctx context.Context, token string) (*Session, error)

	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	CountUsers(ctx context.Context) (int, error)
	GrantRole(ctx context.Context, userID uuid.UUID, role string) error
	RevokeRole(ctx context.Context, userID uuid.UUID, role string) error

	// SeedAdmin grants the admin role to the configured bootstrap account if
	// that account already exists. With no bootstrap email configured, or the
	// account not yet registered, it is a no-op; Register picks the role up
	// when the bootstrap email signs up later.
	SeedAdmin(ctx context.Context) error
}
