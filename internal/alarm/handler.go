package alarm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pagetrack/pagetrack-server/internal/auth"
	"github.com/pagetrack/pagetrack-server/internal/notify"
)

// ReminderTitle is the title of the notification posted when an alarm fires.
const ReminderTitle = "Reading reminder"

// Notifier posts notifications.
type Notifier interface {
	Post(n notify.Notification) (notify.Notification, error)
}

// IdentityResolver returns the identity to act for, falling back to an
// anonymous one.
type IdentityResolver interface {
	Resolve(ctx context.Context) (auth.Identity, error)
}

// AlarmDeleter removes alarm documents.
type AlarmDeleter interface {
	DeleteAlarm(ctx context.Context, userID, alarmID string) error
}

// Handler reacts to fired alarms: it notifies and deletes the alarm document
// from its owner's partition. Wake-ups without an owner fall back to the
// identity signed in on the device. Every failure is logged only.
type Handler struct {
	notifier Notifier
	session  IdentityResolver
	store    AlarmDeleter
	logger   *slog.Logger
}

// NewHandler creates an alarm Handler.
func NewHandler(notifier Notifier, session IdentityResolver, store AlarmDeleter, logger *slog.Logger) *Handler {
	return &Handler{
		notifier: notifier,
		session:  session,
		store:    store,
		logger:   logger,
	}
}

// OnWake implements Receiver.
func (h *Handler) OnWake(ctx context.Context, w Wakeup) {
	log := h.logger.With("alarm_id", w.AlarmID, "user_id", w.UserID)

	_, err := h.notifier.Post(notify.Notification{
		Channel:  notify.ChannelAlarms,
		Priority: notify.PriorityHigh,
		Title:    ReminderTitle,
		Text:     w.Message,
	})
	if err != nil {
		log.Warn("alarm notification not shown", "error", err)
	}

	userID := w.UserID
	if userID == "" {
		identity, err := h.session.Resolve(ctx)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				log.Warn("no identity to delete fired alarm for", "error", err)
			} else {
				log.Error("identity resolution failed", "error", err)
			}
			return
		}
		userID = identity.UserID
	}

	if err := h.store.DeleteAlarm(ctx, userID, w.AlarmID); err != nil {
		log.Error("failed to delete fired alarm", "owner_id", userID, "error", err)
		return
	}

	log.Info("fired alarm removed", "owner_id", userID)
}
