package notify

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
	"github.com/pagetrack/pagetrack-server/internal/permission"
	"github.com/pagetrack/pagetrack-server/internal/sse"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func newTestCenter(allowed bool) (*Center, *recordingEmitter) {
	rec := &recordingEmitter{}
	perms := permission.NewSet(permission.State{Notifications: allowed})
	return NewCenter(perms, rec, slog.New(slog.DiscardHandler)), rec
}

func TestPost_AssignsIDAndEmits(t *testing.T) {
	c, rec := newTestCenter(true)

	n, err := c.Post(Notification{Channel: ChannelAlarms, Priority: PriorityHigh, Text: "Dune: review"})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.PostedAt.IsZero())

	require.Len(t, rec.events, 1)
	assert.Equal(t, sse.EventNotificationPosted, rec.events[0].Type)
	assert.Len(t, c.Active(), 1)
}

func TestPost_DefaultsToLowPriority(t *testing.T) {
	c, _ := newTestCenter(true)

	n, err := c.Post(Notification{Channel: ChannelTimer, Text: "Timer running"})
	require.NoError(t, err)
	assert.Equal(t, PriorityLow, n.Priority)
}

func TestPost_PermissionDenied(t *testing.T) {
	c, rec := newTestCenter(false)

	_, err := c.Post(Notification{Channel: ChannelAlarms, Text: "Dune: review"})
	assert.ErrorIs(t, err, domainerrors.ErrPermissionDenied)
	assert.Empty(t, rec.events)
	assert.Empty(t, c.Active())
}

func TestPost_SameIDReplaces(t *testing.T) {
	c, _ := newTestCenter(true)

	_, err := c.Post(Notification{ID: "timer", Channel: ChannelTimer, Text: "00:00:10"})
	require.NoError(t, err)
	_, err = c.Post(Notification{ID: "timer", Channel: ChannelTimer, Text: "00:00:09"})
	require.NoError(t, err)

	active := c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "00:00:09", active[0].Text)
}

func TestCancel(t *testing.T) {
	c, rec := newTestCenter(true)

	n, err := c.Post(Notification{Channel: ChannelTimer, Text: "running"})
	require.NoError(t, err)

	c.Cancel(n.ID)
	c.Cancel(n.ID)
	c.Cancel("unknown")

	assert.Empty(t, c.Active())
	require.Len(t, rec.events, 2)
	assert.Equal(t, sse.EventNotificationCancelled, rec.events[1].Type)
	assert.Equal(t, CancelledData{ID: n.ID}, rec.events[1].Data)
}
