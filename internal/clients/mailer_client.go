// internal/clients/mailer_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// MailerClient posts outbound messages to a delivery webhook. The breaker
// trips after repeated downstream failures so the storefront keeps serving
// while the provider is down.
type MailerClient struct {
	webhookURL string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// Message is the webhook payload. To/Subject/Body map straight onto the
// provider's template fields.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	ReplyTo string `json:"reply_to,omitempty"`
}

func NewMailerClient(webhookURL string, timeout time.Duration) *MailerClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "mailer-webhook",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &MailerClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// Send delivers one message through the webhook. A tripped breaker returns
// immediately with gobreaker.ErrOpenState wrapped in the error.
func (c *MailerClient) Send(ctx context.Context, msg Message) error {
	if c.webhookURL == "" {
		return fmt.Errorf("mailer webhook not configured")
	}

	_, err := c.breaker.Execute(func() (any, error) {
		body, err := json.Marshal(msg)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to deliver message: %w", err)
	}
	return nil
}
