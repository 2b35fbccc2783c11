package outreach

import (
	"time"

	"github.com/google/uuid"
)

// ContactSubmission is a message sent through the storefront contact form.
type ContactSubmission struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Subject   string    `db:"subject" json:"subject"`
	Message   string    `db:"message" json:"message"`
	Forwarded bool      `db:"forwarded" json:"forwarded"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subscriber is one newsletter signup. Subscribing twice with the same
// address is a no-op.
type Subscriber struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
