package auth

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/time/rate"

	"polycycle/internal/eventlog"
)

// service implements the Service interface.
type service struct {
	db          *sqlx.DB
	events      *eventlog.Log
	tokens      *TokenIssuer
	adminEmail  string
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewService creates a new auth service instance. adminEmail names the
// bootstrap account that receives the admin role; empty disables the
// bootstrap.
func NewService(db *sqlx.DB, events *eventlog.Log, tokens *TokenIssuer, adminEmail string, logger *slog.Logger) Service {
	return &service{
		db:          db,
		events:      events,
		tokens:      tokens,
		adminEmail:  strings.ToLower(strings.TrimSpace(adminEmail)),
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute), 5),
		logger:      logger,
	}
}

// Register creates a new account with a salted Argon2id credential.
func (s *service) Register(ctx context.Context, email, name, password string) (*User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, email, name, photo, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.Name, user.Photo, user.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, salt)
		VALUES ($1, $2, $3)
	`, user.ID, hash, salt)
	if err != nil {
		return nil, fmt.Errorf("insert credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	event := UserRegisteredEvent{ID: user.ID, Email: user.Email, Name: user.Name}
	if err := s.events.Append(ctx, user.ID, eventlog.AggregateUser, "UserRegistered", event, 0); err != nil {
		s.logger.Warn("user event append failed", "user_id", user.ID, "error", err)
	}

	// The bootstrap account becomes an admin the moment it registers, so a
	// fresh deployment never has a back office nobody can enter.
	if s.adminEmail != "" && strings.EqualFold(email, s.adminEmail) {
		if err := s.GrantRole(ctx, user.ID, RoleAdmin); err != nil {
			s.logger.Error("admin bootstrap grant failed", "user_id", user.ID, "error", err)
		}
	}

	return user, nil
}

// SeedAdmin grants the admin role to the configured bootstrap account when it
// already exists. Called once at startup by the back office.
func (s *service) SeedAdmin(ctx context.Context) error {
	if s.adminEmail == "" {
		return nil
	}
	user := &User{}
	err := s.db.GetContext(ctx, user, `
		SELECT id, email, name, photo, created_at FROM users WHERE lower(email) = $1
	`, s.adminEmail)
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Info("admin bootstrap pending registration", "email", s.adminEmail)
			return nil
		}
		return fmt.Errorf("look up bootstrap account: %w", err)
	}
	return s.GrantRole(ctx, user.ID, RoleAdmin)
}

// SignIn verifies credentials and issues a session token carrying the user's
// roles. Failures collapse into a small user-facing taxonomy.
func (s *service) SignIn(ctx context.Context, email, password string) (string, *Session, error) {
	if !s.rateLimiter.Allow() {
		return "", nil, ErrRateLimited
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", nil, ErrInvalidEmail
	}

	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("look up user: %w", err)
	}

	cred := &Credential{}
	err = s.db.GetContext(ctx, cred, `
		SELECT user_id, password_hash, salt FROM credentials WHERE user_id = $1
	`, user.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("look up credential: %w", err)
	}

	ok, err := verifyPassword(password, cred.Salt, cred.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	roles, err := s.rolesOf(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user.ID, roles)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	return token, &Session{User: user, Roles: roles}, nil
}

// ResolveToken turns a bearer token back into a session.
func (s *service) ResolveToken(ctx context.Context, token string) (*Session, error) {
	userID, roles, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Roles: roles}, nil
}

func (s *service) getUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := s.db.GetContext(ctx, user, `
		SELECT id, email, name, photo, created_at FROM users WHERE email = $1
	`, email)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user := &User{}
	err := s.db.GetContext(ctx, user, `
		SELECT id, email, name, photo, created_at FROM users WHERE id = $1
	`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns every account, newest first.
func (s *service) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	err := s.db.SelectContext(ctx, &users, `
		SELECT id, email, name, photo, created_at FROM users ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CountUsers returns the number of registered accounts.
func (s *service) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *service) rolesOf(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var roles []string
	err := s.db.SelectContext(ctx, &roles, `
		SELECT role FROM roles WHERE user_id = $1 ORDER BY role
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// GrantRole adds a role to a user. Granting an already-held role is a no-op.
func (s *service) GrantRole(ctx context.Context, userID uuid.UUID, role string) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, role)
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}

	version, err := s.events.CurrentVersion(ctx, userID)
	if err == nil {
		event := RoleGrantedEvent{ID: userID, Role: role}
		if err := s.events.Append(ctx, userID, eventlog.AggregateUser, "RoleGranted", event, version); err != nil {
			s.logger.Warn("role event append failed", "user_id", userID, "error", err)
		}
	}
	return nil
}

// RevokeRole removes a role from a user.
func (s *service) RevokeRole(ctx context.Context, userID uuid.UUID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM roles WHERE user_id = $1 AND role = $2
	`, userID, role)
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	return nil
}
