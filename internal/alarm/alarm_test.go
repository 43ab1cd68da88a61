package alarm

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"

	"github.com/pagetrack/pagetrack-server/internal/auth"
	"github.com/pagetrack/pagetrack-server/internal/clock"
	"github.com/pagetrack/pagetrack-server/internal/domain"
	"github.com/pagetrack/pagetrack-server/internal/notify"
	"github.com/pagetrack/pagetrack-server/internal/permission"
	"github.com/pagetrack/pagetrack-server/internal/prefs"
	"github.com/pagetrack/pagetrack-server/internal/sse"
	"github.com/pagetrack/pagetrack-server/internal/store"
)

var testStart = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// posted returns the texts of every posted notification.
func (r *recordingEmitter) posted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var texts []string
	for _, e := range r.events {
		if n, ok := e.Data.(notify.Notification); ok && e.Type == sse.EventNotificationPosted {
			texts = append(texts, n.Text)
		}
	}
	return texts
}

// harness wires the alarm subsystem the way the server does, on a fake clock.
type harness struct {
	clock      *clock.Fake
	perms      *permission.Set
	store      *store.Store
	prefs      *prefs.Prefs
	session    *auth.Session
	emitter    *recordingEmitter
	scheduler  *Scheduler
	reconciler *Reconciler
	userID     string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s, err := store.New("", nil, store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	h := &harness{
		clock:   clock.NewFake(testStart),
		perms:   permission.NewSet(permission.State{ExactAlarms: true, Notifications: true}),
		store:   s,
		prefs:   prefs.New(keyring.NewArrayKeyring(nil), nil),
		emitter: &recordingEmitter{},
	}
	h.session = auth.NewSession(s, h.prefs, tokens, discardLogger())

	user, _, err := h.session.SignInAnonymously(context.Background())
	require.NoError(t, err)
	h.userID = user.ID

	center := notify.NewCenter(h.perms, h.emitter, discardLogger())
	handler := NewHandler(center, h.session, s, discardLogger())
	h.scheduler = NewScheduler(h.clock, h.perms, handler, discardLogger())
	h.reconciler = NewReconciler(s, s, h.scheduler, h.clock, discardLogger())
	t.Cleanup(func() { _ = h.scheduler.Shutdown() })

	return h
}

// reboot simulates a process restart: pending wake-ups are lost and the
// session is rebuilt from the last-user record.
func (h *harness) reboot(t *testing.T) {
	t.Helper()
	require.NoError(t, h.scheduler.Shutdown())

	center := notify.NewCenter(h.perms, h.emitter, discardLogger())
	session := auth.NewSession(h.store, h.prefs, h.session.Tokens(), discardLogger())
	require.NoError(t, session.Restore(context.Background()))
	h.session = session

	handler := NewHandler(center, session, h.store, discardLogger())
	h.scheduler = NewScheduler(h.clock, h.perms, handler, discardLogger())
	h.reconciler = NewReconciler(h.store, h.store, h.scheduler, h.clock, discardLogger())
}

func (h *harness) putAlarm(t *testing.T, id string, deadline time.Time) *domain.AlarmItem {
	t.Helper()
	return h.putAlarmFor(t, h.userID, id, deadline)
}

func (h *harness) putAlarmFor(t *testing.T, userID, id string, deadline time.Time) *domain.AlarmItem {
	t.Helper()
	alarm := &domain.AlarmItem{
		AlarmID:        id,
		BookID:         "book-dune",
		BookName:       "Dune",
		DeadlineMillis: deadline.UnixMilli(),
		Message:        "review",
	}
	require.NoError(t, h.store.PutAlarm(context.Background(), userID, alarm))
	return alarm
}

// addUser signs in another anonymous reader, which also makes it the
// device's current identity.
func (h *harness) addUser(t *testing.T) string {
	t.Helper()
	user, _, err := h.session.SignInAnonymously(context.Background())
	require.NoError(t, err)
	return user.ID
}

func (h *harness) storedAlarmIDs(t *testing.T) []string {
	t.Helper()
	return h.storedAlarmIDsOf(t, h.userID)
}

func (h *harness) storedAlarmIDsOf(t *testing.T, userID string) []string {
	t.Helper()
	alarms, err := h.store.ListAlarms(context.Background(), userID)
	require.NoError(t, err)
	ids := make([]string, 0, len(alarms))
	for _, a := range alarms {
		ids = append(ids, a.AlarmID)
	}
	return ids
}
