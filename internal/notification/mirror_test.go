package notification

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listService struct {
	captureService
	list []*Notification
}

func (l *listService) List(context.Context) ([]*Notification, error) { return l.list, nil }

func TestMirrorSnapshot(t *testing.T) {
	svc := &listService{list: []*Notification{
		{ID: uuid.New(), Read: false},
		{ID: uuid.New(), Read: true},
		{ID: uuid.New(), Read: false},
	}}
	m := NewMirror(svc, slog.Default())

	_, _, ready := m.Snapshot()
	assert.False(t, ready, "snapshot should not be ready before the first load")

	require.NoError(t, m.reload(context.Background()))

	notifications, unread, ready := m.Snapshot()
	assert.True(t, ready)
	assert.Len(t, notifications, 3)
	assert.Equal(t, 2, unread)
}
