package alarm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetrack/pagetrack-server/internal/auth"
	"github.com/pagetrack/pagetrack-server/internal/notify"
	"github.com/pagetrack/pagetrack-server/internal/permission"
)

type failingResolver struct{}

func (failingResolver) Resolve(context.Context) (auth.Identity, error) {
	return auth.Identity{}, auth.ErrUnauthenticated
}

type countingDeleter struct {
	calls int
	err   error
}

func (d *countingDeleter) DeleteAlarm(context.Context, string, string) error {
	d.calls++
	return d.err
}

func TestHandler_NotifiesThenDeletes(t *testing.T) {
	h := newHarness(t)
	alarm := h.putAlarm(t, "a1", h.clock.Now().Add(time.Minute))

	require.True(t, h.scheduler.Schedule(h.userID, alarm))
	h.clock.Advance(time.Minute)

	assert.Equal(t, []string{"Dune: review"}, h.emitter.posted())
	assert.Empty(t, h.storedAlarmIDs(t))
}

func TestHandler_NotificationDeniedStillDeletes(t *testing.T) {
	h := newHarness(t)
	h.perms.Grant(permission.Notifications, false)
	alarm := h.putAlarm(t, "a1", h.clock.Now().Add(time.Minute))

	require.True(t, h.scheduler.Schedule(h.userID, alarm))
	h.clock.Advance(time.Minute)

	assert.Empty(t, h.emitter.posted())
	assert.Empty(t, h.storedAlarmIDs(t))
}

func TestHandler_DeletesUnderOwnerNotCurrentIdentity(t *testing.T) {
	h := newHarness(t)
	alarm := h.putAlarm(t, "a1", h.clock.Now().Add(time.Minute))
	require.True(t, h.scheduler.Schedule(h.userID, alarm))

	// Another reader becomes the device identity before the alarm fires.
	other := h.addUser(t)
	h.putAlarmFor(t, other, "a1", h.clock.Now().Add(time.Hour))

	h.clock.Advance(time.Minute)

	assert.Equal(t, []string{"Dune: review"}, h.emitter.posted())
	assert.Empty(t, h.storedAlarmIDs(t))
	assert.Equal(t, []string{"a1"}, h.storedAlarmIDsOf(t, other))
}

func TestHandler_SignedOutOwnerStillDeleted(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.SignOut(h.userID, false))

	alarm := h.putAlarm(t, "a1", h.clock.Now().Add(time.Minute))
	require.True(t, h.scheduler.Schedule(h.userID, alarm))
	h.clock.Advance(time.Minute)

	assert.Equal(t, []string{"Dune: review"}, h.emitter.posted())
	assert.Empty(t, h.storedAlarmIDs(t))
	_, err := h.session.Current()
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestHandler_OwnerlessWakeupFallsBackToAnonymousIdentity(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.SignOut(h.userID, false))
	h.putAlarm(t, "a1", h.clock.Now().Add(time.Minute))

	NewHandler(notify.NewCenter(h.perms, h.emitter, discardLogger()), h.session, h.store, discardLogger()).
		OnWake(context.Background(), Wakeup{AlarmID: "a1", Message: "Dune: review"})

	// The fallback identity is a fresh user, so the original user's document stays.
	assert.Equal(t, []string{"Dune: review"}, h.emitter.posted())
	current, err := h.session.Current()
	require.NoError(t, err)
	assert.True(t, current.Anonymous)
	assert.NotEqual(t, h.userID, current.UserID)
	assert.Equal(t, []string{"a1"}, h.storedAlarmIDs(t))
}

func TestHandler_PostsReminderOnAlarmsChannel(t *testing.T) {
	h := newHarness(t)

	NewHandler(notify.NewCenter(h.perms, h.emitter, discardLogger()), h.session, h.store, discardLogger()).
		OnWake(context.Background(), Wakeup{UserID: h.userID, AlarmID: "a1", Message: "Dune: review"})

	h.emitter.mu.Lock()
	defer h.emitter.mu.Unlock()
	require.Len(t, h.emitter.events, 1)
	n, ok := h.emitter.events[0].Data.(notify.Notification)
	require.True(t, ok)
	assert.Equal(t, ReminderTitle, n.Title)
	assert.Equal(t, notify.ChannelAlarms, n.Channel)
	assert.Equal(t, notify.PriorityHigh, n.Priority)
}

func TestHandler_NoIdentitySkipsDelete(t *testing.T) {
	emitter := &recordingEmitter{}
	center := notify.NewCenter(permission.NewSet(permission.State{Notifications: true}), emitter, discardLogger())
	deleter := &countingDeleter{}

	NewHandler(center, failingResolver{}, deleter, discardLogger()).
		OnWake(context.Background(), Wakeup{AlarmID: "a1", Message: "Dune: review"})

	assert.Equal(t, []string{"Dune: review"}, emitter.posted())
	assert.Equal(t, 0, deleter.calls)
}

func TestHandler_DeleteFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	emitter := &recordingEmitter{}
	center := notify.NewCenter(h.perms, emitter, discardLogger())
	deleter := &countingDeleter{err: errors.New("store offline")}

	NewHandler(center, h.session, deleter, discardLogger()).
		OnWake(context.Background(), Wakeup{UserID: h.userID, AlarmID: "a1", Message: "Dune: review"})

	assert.Equal(t, 1, deleter.calls)
	assert.Len(t, emitter.posted(), 1)
}

func TestHandler_MissingDocumentIsFine(t *testing.T) {
	h := newHarness(t)
	center := notify.NewCenter(h.perms, h.emitter, discardLogger())

	NewHandler(center, h.session, h.store, discardLogger()).
		OnWake(context.Background(), Wakeup{UserID: h.userID, AlarmID: "never-stored", Message: "x: y"})

	assert.Len(t, h.emitter.posted(), 1)
}
