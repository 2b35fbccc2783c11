package catalog

import (
	"context"
	"log/slog"
	"sync"

	"polycycle/internal/bus"
	"polycycle/internal/eventlog"
)

// Mirror keeps an in-memory copy of the product list in sync with the
// database. Every change notification replaces the whole snapshot rather than
// merging incrementally, so a mirror can never drift from the backing store by
// more than one reload. One mirror per process, owned by main; teardown is
// context cancellation.
type Mirror struct {
	svc    Service
	logger *slog.Logger

	mu       sync.RWMutex
	products []*Product
	ready    bool

	onReload func([]*Product)
}

func NewMirror(svc Service, logger *slog.Logger) *Mirror {
	return &Mirror{svc: svc, logger: logger}
}

// OnReload registers a hook invoked with the fresh snapshot after every
// reload. Set before Run; the search index sync hangs off this.
func (m *Mirror) OnReload(fn func([]*Product)) {
	m.onReload = fn
}

// Run performs the initial load, subscribes to product change notifications
// and reloads on every payload. It blocks until ctx is canceled.
func (m *Mirror) Run(ctx context.Context, listener *bus.Listener) error {
	if err := m.reload(ctx); err != nil {
		return err
	}

	ch, err := listener.Subscribe(ctx, eventlog.Channel(eventlog.AggregateProduct))
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
				m.logger.Error("catalog mirror reload failed", "error", err)
			}
		}
	}
}

func (m *Mirror) reload(ctx context.Context) error {
	products, err := m.svc.List(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.products = products
	m.ready = true
	m.mu.Unlock()

	if m.onReload != nil {
		m.onReload(products)
	}
	return nil
}

// Products returns the current snapshot. The slice is shared; callers must
// treat it as read-only.
func (m *Mirror) Products() []*Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.products
}

// Ready reports whether the initial load has completed.
func (m *Mirror) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}
