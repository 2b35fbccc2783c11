package notification

import (
	"context"
	"log/slog"
	"sync"

	"polycycle/internal/bus"
	"polycycle/internal/eventlog"
)

// Mirror keeps an in-memory snapshot of the alert list for the admin panel,
// reloaded wholesale on every change notification. Same lifecycle as the
// catalog mirror: one per process, torn down by context cancellation.
type Mirror struct {
	svc    Service
	logger *slog.Logger

	mu            sync.RWMutex
	notifications []*Notification
	unread        int
	ready         bool
}

func NewMirror(svc Service, logger *slog.Logger) *Mirror {
	return &Mirror{svc: svc, logger: logger}
}

// Run performs the initial load, then reloads on every payload until ctx is
// canceled.
func (m *Mirror) Run(ctx context.Context, listener *bus.Listener) error {
	if err := m.reload(ctx); err != nil {
		return err
	}

	ch, err := listener.Subscribe(ctx, eventlog.Channel(eventlog.AggregateNotification))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			if err := m.reload(ctx); err != nil {
				m.logger.Error("notification mirror reload failed", "error", err)
			}
		}
	}
}

func (m *Mirror) reload(ctx context.Context) error {
	notifications, err := m.svc.List(ctx)
	if err != nil {
		return err
	}
	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}

	m.mu.Lock()
	m.notifications = notifications
	m.unread = unread
	m.ready = true
	m.mu.Unlock()
	return nil
}

// Snapshot returns the current alert list plus unread count, and whether the
// initial load has completed. Callers fall back to the service when not ready.
func (m *Mirror) Snapshot() ([]*Notification, int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notifications, m.unread, m.ready
}
