package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Listener wraps a pq.Listener and fans Postgres NOTIFY payloads out to a
// channel per subscription. It is the realtime change-notification side of the
// system of record: writers emit pg_notify on every domain change and mirrors
// reload their snapshot when a payload arrives.
type Listener struct {
	dsn string
	log *slog.Logger
}

func NewListener(dsn string, log *slog.Logger) *Listener {
	return &Listener{dsn: dsn, log: log}
}

// Subscribe listens on the given channel until ctx is canceled. Payloads are
// delivered on the returned channel; the channel is closed on teardown.
// Reconnects are handled by pq.Listener itself; a nil notification (sent by pq
// after a reconnect) is forwarded as an empty payload so subscribers resync.
func (l *Listener) Subscribe(ctx context.Context, channel string) (<-chan string, error) {
	pl := pq.NewListener(l.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.log.Warn("listener event", "channel", channel, "event", int(ev), "error", err)
		}
	})
	if err := pl.Listen(channel); err != nil {
		pl.Close()
		return nil, err
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer pl.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-pl.Notify:
				payload := ""
				if n != nil {
					payload = n.Extra
				}
				select {
				case out <- payload:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				// Keep the connection honest during quiet periods.
				go pl.Ping()
			}
		}
	}()
	return out, nil
}
