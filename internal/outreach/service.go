package outreach

import (
	"context"
	"errors"
)

var (
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrMissingMessage = errors.New("message body is required")
)

type SubmitContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Service handles the two public intake paths: contact form submissions and
// newsletter signups.
type Service interface {
	SubmitContact(ctx context.Context, input SubmitContactInput) (*ContactSubmission, error)
	ListContacts(ctx context.Context, limit int) ([]*ContactSubmission, error)
	Subscribe(ctx context.Context, email string) (*Subscriber, error)
	ListSubscribers(ctx context.Context) ([]*Subscriber, error)
}
