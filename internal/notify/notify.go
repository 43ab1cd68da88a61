// Package notify is the device notification tray. Posted notifications are
// kept while active and fanned out to stream clients.
package notify

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
	"github.com/pagetrack/pagetrack-server/internal/id"
	"github.com/pagetrack/pagetrack-server/internal/sse"
)

// Channel groups notifications by purpose.
type Channel string

const (
	ChannelAlarms Channel = "alarms"
	ChannelTimer  Channel = "timer"
)

// Priority controls how intrusive a notification is.
type Priority string

const (
	PriorityLow  Priority = "low"
	PriorityHigh Priority = "high"
)

// ActionStopSound silences the countdown alert.
const ActionStopSound = "stop_sound"

// Action is a button attached to a notification.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Notification is one entry of the tray.
type Notification struct {
	ID       string    `json:"id"`
	Channel  Channel   `json:"channel"`
	Priority Priority  `json:"priority"`
	Title    string    `json:"title"`
	Text     string    `json:"text"`
	Ongoing  bool      `json:"ongoing,omitempty"`
	Actions  []Action  `json:"actions,omitempty"`
	PostedAt time.Time `json:"postedAt"`
}

// CancelledData is the payload of a cancellation event.
type CancelledData struct {
	ID string `json:"id"`
}

// Permissions reports whether posting is allowed.
type Permissions interface {
	CanNotify() bool
}

// Emitter receives stream events.
type Emitter interface {
	Emit(event sse.Event)
}

// ErrNotPermitted is returned by Post when notifications are disabled.
var ErrNotPermitted = domainerrors.PermissionDenied("notifications are not permitted")

// Center posts and cancels notifications.
type Center struct {
	perms   Permissions
	emitter Emitter
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]Notification
}

// NewCenter creates an empty tray.
func NewCenter(perms Permissions, emitter Emitter, logger *slog.Logger) *Center {
	return &Center{
		perms:   perms,
		emitter: emitter,
		logger:  logger,
		active:  make(map[string]Notification),
	}
}

// Post shows n. Without the notification permission nothing is queued and
// ErrNotPermitted is returned. Posting an existing id replaces it.
func (c *Center) Post(n Notification) (Notification, error) {
	if !c.perms.CanNotify() {
		c.logger.Warn("notification skipped, permission missing",
			"channel", n.Channel,
			"title", n.Title)
		return Notification{}, ErrNotPermitted
	}

	if n.ID == "" {
		nid, err := id.Generate("ntf")
		if err != nil {
			return Notification{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate notification id")
		}
		n.ID = nid
	}
	if n.Priority == "" {
		n.Priority = PriorityLow
	}
	n.PostedAt = time.Now()

	c.mu.Lock()
	c.active[n.ID] = n
	c.mu.Unlock()

	c.emitter.Emit(sse.NewEvent(sse.EventNotificationPosted, n))
	c.logger.Info("notification posted",
		"notification_id", n.ID,
		"channel", n.Channel,
		"priority", n.Priority)

	return n, nil
}

// Cancel removes a notification from the tray. Unknown ids are ignored.
func (c *Center) Cancel(notificationID string) {
	c.mu.Lock()
	_, ok := c.active[notificationID]
	delete(c.active, notificationID)
	c.mu.Unlock()

	if !ok {
		return
	}

	c.emitter.Emit(sse.NewEvent(sse.EventNotificationCancelled, CancelledData{ID: notificationID}))
	c.logger.Debug("notification cancelled", "notification_id", notificationID)
}

// Active returns the notifications currently in the tray, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	list := make([]Notification, 0, len(c.active))
	for _, n := range c.active {
		list = append(list, n)
	}
	c.mu.Unlock()

	slices.SortFunc(list, func(a, b Notification) int {
		return a.PostedAt.Compare(b.PostedAt)
	})
	return list
}
