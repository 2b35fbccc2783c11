package outreach

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"polycycle/internal/clients"
)

type service struct {
	db          *sqlx.DB
	mailer      *clients.MailerClient
	contactAddr string
	logger      *slog.Logger
}

// NewService wires the intake paths. mailer may be nil; submissions are then
// stored without forwarding.
func NewService(db *sqlx.DB, mailer *clients.MailerClient, contactAddr string, logger *slog.Logger) Service {
	return &service{db: db, mailer: mailer, contactAddr: contactAddr, logger: logger}
}

func (s *service) SubmitContact(ctx context.Context, input SubmitContactInput) (*ContactSubmission, error) {
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if strings.TrimSpace(input.Message) == "" {
		return nil, ErrMissingMessage
	}

	sub := &ContactSubmission{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(input.Name),
		Email:     input.Email,
		Subject:   strings.TrimSpace(input.Subject),
		Message:   input.Message,
		CreatedAt: time.Now().UTC(),
	}

	// Forwarding is best effort: the submission is kept either way and the
	// forwarded flag records whether delivery went through.
	if s.mailer != nil && s.contactAddr != "" {
		err := s.mailer.Send(ctx, clients.Message{
			To:      s.contactAddr,
			Subject: fmt.Sprintf("Contact form: %s", sub.Subject),
			Body:    fmt.Sprintf("From: %s <%s>\n\n%s", sub.Name, sub.Email, sub.Message),
			ReplyTo: sub.Email,
		})
		if err != nil {
			s.logger.Warn("contact forward failed", "submission_id", sub.ID, "error", err)
		} else {
			sub.Forwarded = true
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_submissions (id, name, email, subject, message, forwarded, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.Name, sub.Email, sub.Subject, sub.Message, sub.Forwarded, sub.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store contact submission: %w", err)
	}

	return sub, nil
}

func (s *service) ListContacts(ctx context.Context, limit int) ([]*ContactSubmission, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	subs := []*ContactSubmission{}
	err := s.db.SelectContext(ctx, &subs,
		`SELECT id, name, email, subject, message, forwarded, created_at
		 FROM contact_submissions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact submissions: %w", err)
	}
	return subs, nil
}

func (s *service) Subscribe(ctx context.Context, email string) (*Subscriber, error) {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}
	normalized := strings.ToLower(addr.Address)

	sub := &Subscriber{ID: uuid.New(), Email: normalized, CreatedAt: time.Now().UTC()}

	// Re-subscribing keeps the original row.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO newsletter (id, email, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO NOTHING`,
		sub.ID, sub.Email, sub.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	err = s.db.GetContext(ctx, sub,
		`SELECT id, email, created_at FROM newsletter WHERE email = $1`, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriber: %w", err)
	}
	return sub, nil
}

func (s *service) ListSubscribers(ctx context.Context) ([]*Subscriber, error) {
	subs := []*Subscriber{}
	err := s.db.SelectContext(ctx, &subs,
		`SELECT id, email, created_at FROM newsletter ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subs, nil
}
