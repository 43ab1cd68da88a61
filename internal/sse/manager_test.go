package sse

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(cancel)
	return m
}

func receive(t *testing.T, s *Subscriber) Event {
	t.Helper()
	select {
	case e := <-s.Events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestManager_EmitToUserFilters(t *testing.T) {
	m := newTestManager(t)

	alice, err := m.Subscribe("alice")
	require.NoError(t, err)
	bob, err := m.Subscribe("bob")
	require.NoError(t, err)

	m.EmitToUser("alice", NewEvent(EventDocumentChanged, "alice's book"))
	m.Emit(NewEvent(EventNotificationPosted, "everyone"))

	first := receive(t, alice)
	assert.Equal(t, EventDocumentChanged, first.Type)
	assert.Equal(t, "alice's book", first.Data)
	assert.Equal(t, EventNotificationPosted, receive(t, alice).Type)

	// Bob only sees the device-wide event.
	assert.Equal(t, EventNotificationPosted, receive(t, bob).Type)
}

func TestManager_ReplaysTimerStateToLateSubscribers(t *testing.T) {
	m := newTestManager(t)

	early, err := m.Subscribe("alice")
	require.NoError(t, err)

	m.Emit(NewEvent(EventTimerState, "running"))
	m.Emit(NewEvent(EventTimerTick, "00:00:09"))
	require.Equal(t, EventTimerState, receive(t, early).Type)
	require.Equal(t, EventTimerTick, receive(t, early).Type)

	late, err := m.Subscribe("alice")
	require.NoError(t, err)

	replayed := receive(t, late)
	assert.Equal(t, EventTimerState, replayed.Type)
	assert.Equal(t, "running", replayed.Data)
}

func TestManager_SendTo(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))

	s, err := m.Subscribe("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ClientCount())

	assert.True(t, m.SendTo(s.ID, NewEvent(EventDocumentChanged, nil)))
	assert.Equal(t, EventDocumentChanged, receive(t, s).Type)

	m.Unsubscribe(s.ID)
	assert.False(t, m.SendTo(s.ID, NewEvent(EventDocumentChanged, nil)))
	assert.Equal(t, 0, m.ClientCount())
}

func TestManager_UnsubscribeTwice(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))

	s, err := m.Subscribe("alice")
	require.NoError(t, err)

	m.Unsubscribe(s.ID)
	m.Unsubscribe(s.ID)

	_, open := <-s.Done
	assert.False(t, open)
}

func TestManager_ShutdownDrainsAndDropsLater(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))
	s, err := m.Subscribe("alice")
	require.NoError(t, err)

	m.Emit(NewEvent(EventTimerTick, "00:00:05"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	e, ok := <-s.Events
	require.True(t, ok)
	assert.Equal(t, EventTimerTick, e.Type)
	assert.Equal(t, 0, m.ClientCount())

	// Emitting after shutdown must not panic.
	m.Emit(NewEvent(EventTimerTick, "late"))
	require.NoError(t, m.Shutdown(ctx))
}
