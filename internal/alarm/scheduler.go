// Package alarm arms one-shot reading reminders, reacts when they fire and
// restores them after a restart.
package alarm

import (
	"cmp"
	"context"
	"hash/fnv"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/pagetrack/pagetrack-server/internal/clock"
	"github.com/pagetrack/pagetrack-server/internal/domain"
)

// Wakeup is the payload delivered when an alarm fires. UserID names the
// partition the alarm document lives in.
type Wakeup struct {
	UserID  string `json:"userId"`
	AlarmID string `json:"alarmId"`
	Message string `json:"formattedMessage"`
}

// Receiver handles fired wake-ups.
type Receiver interface {
	OnWake(ctx context.Context, w Wakeup)
}

// ExactPermission reports whether exact wake-ups may be armed.
type ExactPermission interface {
	CanScheduleExact() bool
}

// Scheduled describes a pending wake-up.
type Scheduled struct {
	Key     uint32    `json:"key"`
	UserID  string    `json:"userId"`
	AlarmID string    `json:"alarmId"`
	At      time.Time `json:"at"`
}

type pendingWake struct {
	wakeup Wakeup
	at     time.Time
	timer  clock.Timer
}

// Scheduler arms one wake-up per wake key. Keys are derived from the owner and
// the alarm id, so users picking the same alarm id never touch each other's
// wake-ups. Scheduling a key that is already pending replaces the earlier one.
type Scheduler struct {
	clock    clock.Clock
	perms    ExactPermission
	receiver Receiver
	logger   *slog.Logger

	// ctx is handed to the receiver; it outlives individual requests.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[uint32]*pendingWake
}

// NewScheduler creates a scheduler that delivers wake-ups to receiver.
func NewScheduler(clk clock.Clock, perms ExactPermission, receiver Receiver, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		clock:    clk,
		perms:    perms,
		receiver: receiver,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[uint32]*pendingWake),
	}
}

// WakeKey derives the wake key of a user's alarm: the 32-bit FNV-1a of
// "{userID}:{alarmID}".
func WakeKey(userID, alarmID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID + ":" + alarmID))
	return h.Sum32()
}

// Schedule arms a wake-up at the deadline of userID's alarm. Nothing is armed for a nil
// alarm, a deadline that is not in the future, or when exact wake-ups are not
// permitted; those cases are logged and reported as false.
func (s *Scheduler) Schedule(userID string, alarm *domain.AlarmItem) bool {
	if alarm == nil {
		s.logger.Error("schedule called with nil alarm")
		return false
	}

	now := s.clock.Now()
	deadline := alarm.Deadline()
	if !deadline.After(now) {
		s.logger.Warn("alarm deadline is not in the future, not scheduling",
			"user_id", userID,
			"alarm_id", alarm.AlarmID,
			"deadline", deadline,
			"now", now)
		return false
	}

	if !s.perms.CanScheduleExact() {
		s.logger.Warn("exact alarm permission missing, alarm not scheduled",
			"user_id", userID,
			"alarm_id", alarm.AlarmID)
		return false
	}

	key := WakeKey(userID, alarm.AlarmID)
	wake := &pendingWake{
		wakeup: Wakeup{UserID: userID, AlarmID: alarm.AlarmID, Message: alarm.FormattedMessage()},
		at:     deadline,
	}

	s.mu.Lock()
	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
	}
	s.pending[key] = wake
	// Under mu so a zero-delay fire cannot observe a missing entry.
	wake.timer = s.clock.AfterFunc(deadline.Sub(now), func() { s.fire(key, wake) })
	s.mu.Unlock()

	s.logger.Info("alarm scheduled",
		"user_id", userID,
		"alarm_id", alarm.AlarmID,
		"wake_key", key,
		"deadline", deadline)
	return true
}

// Cancel stops the pending wake-up of userID's alarm, if any.
func (s *Scheduler) Cancel(userID, alarmID string) {
	key := WakeKey(userID, alarmID)

	s.mu.Lock()
	wake, ok := s.pending[key]
	// A colliding key that belongs to another alarm is left alone.
	ok = ok && wake.wakeup.UserID == userID && wake.wakeup.AlarmID == alarmID
	if ok {
		delete(s.pending, key)
		wake.timer.Stop()
	}
	s.mu.Unlock()

	if ok {
		s.logger.Info("alarm cancelled", "user_id", userID, "alarm_id", alarmID, "wake_key", key)
	}
}

// IsScheduled reports whether a wake-up is pending for userID's alarm.
func (s *Scheduler) IsScheduled(userID, alarmID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	wake, ok := s.pending[WakeKey(userID, alarmID)]
	return ok && wake.wakeup.UserID == userID && wake.wakeup.AlarmID == alarmID
}

// Pending lists pending wake-ups ordered by fire time.
func (s *Scheduler) Pending() []Scheduled {
	s.mu.Lock()
	list := make([]Scheduled, 0, len(s.pending))
	for key, wake := range s.pending {
		list = append(list, Scheduled{
			Key:     key,
			UserID:  wake.wakeup.UserID,
			AlarmID: wake.wakeup.AlarmID,
			At:      wake.at,
		})
	}
	s.mu.Unlock()

	slices.SortFunc(list, func(a, b Scheduled) int {
		if c := a.At.Compare(b.At); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return list
}

// Shutdown stops every pending wake-up.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	for key, wake := range s.pending {
		wake.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.cancel()
	return nil
}

func (s *Scheduler) fire(key uint32, wake *pendingWake) {
	s.mu.Lock()
	current, ok := s.pending[key]
	if !ok || current != wake {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()

	s.logger.Info("alarm fired", "user_id", wake.wakeup.UserID, "alarm_id", wake.wakeup.AlarmID)
	s.receiver.OnWake(s.ctx, wake.wakeup)
}
