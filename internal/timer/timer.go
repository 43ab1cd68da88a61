// Package timer runs the countdown: a linear run from start to finish that
// ends with a supervised alert sound until the reader stops it.
package timer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pagetrack/pagetrack-server/internal/clock"
	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
	"github.com/pagetrack/pagetrack-server/internal/notify"
	"github.com/pagetrack/pagetrack-server/internal/sse"
)

// State is the countdown lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateRunning    State = "running"
	StateFinished   State = "finished"
	StateStopped    State = "stopped"
	StateTerminated State = "terminated"
)

const (
	progressNotificationID = "timer-progress"
	finishedNotificationID = "timer-finished"
)

// Notifier posts and cancels tray notifications.
type Notifier interface {
	Post(n notify.Notification) (notify.Notification, error)
	Cancel(notificationID string)
}

// Emitter receives stream events.
type Emitter interface {
	Emit(event sse.Event)
}

// Config tunes the countdown.
type Config struct {
	TickInterval time.Duration
	AlertTimeout time.Duration
}

// DefaultConfig ticks every second and silences the alert after 20 seconds.
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		AlertTimeout: 20 * time.Second,
	}
}

// Status is a snapshot of the countdown.
type Status struct {
	State           State     `json:"state"`
	DurationMillis  int64     `json:"durationMillis"`
	RemainingMillis int64     `json:"remainingMillis"`
	Readout         string    `json:"readout"`
	SoundKind       SoundKind `json:"soundKind,omitempty"`
}

// Service runs at most one countdown at a time.
type Service struct {
	clock    clock.Clock
	notifier Notifier
	alert    *AlertSupervisor
	emitter  Emitter
	cfg      Config
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	duration  time.Duration
	deadline  time.Time
	remaining time.Duration
	soundKind SoundKind
	tick      clock.Timer
	timeout   clock.Timer
	// run invalidates callbacks armed by an earlier run.
	run uint64
}

// NewService creates an idle countdown service.
func NewService(clk clock.Clock, notifier Notifier, alert *AlertSupervisor, emitter Emitter, cfg Config, logger *slog.Logger) *Service {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.AlertTimeout <= 0 {
		cfg.AlertTimeout = DefaultConfig().AlertTimeout
	}
	return &Service{
		clock:    clk,
		notifier: notifier,
		alert:    alert,
		emitter:  emitter,
		cfg:      cfg,
		logger:   logger,
		state:    StateIdle,
	}
}

// Start begins a countdown of durationMillis, replacing any run in progress.
func (s *Service) Start(durationMillis int64) (Status, error) {
	if durationMillis <= 0 {
		return Status{}, domainerrors.Validationf("duration must be positive, got %d ms", durationMillis)
	}

	s.mu.Lock()
	s.resetLocked()
	s.run++
	s.state = StateRunning
	s.duration = time.Duration(durationMillis) * time.Millisecond
	s.remaining = s.duration
	s.deadline = s.clock.Now().Add(s.duration)
	s.soundKind = ""
	run := s.run
	s.scheduleTickLocked(run)
	status := s.statusLocked()
	s.mu.Unlock()

	s.notifier.Cancel(finishedNotificationID)
	s.post(notify.Notification{
		ID:       progressNotificationID,
		Channel:  notify.ChannelTimer,
		Priority: notify.PriorityLow,
		Title:    "Reading timer",
		Text:     "Timer in progress",
		Ongoing:  true,
	})

	s.logger.Info("countdown started", "duration_ms", durationMillis)
	s.publish(status)
	return status, nil
}

// Cancel stops a running countdown without notifying.
func (s *Service) Cancel() (Status, error) {
	s.mu.Lock()
	if s.state != StateRunning {
		state := s.state
		s.mu.Unlock()
		return Status{}, domainerrors.Conflict(fmt.Sprintf("countdown is %s, not running", state))
	}

	s.resetLocked()
	s.run++
	s.state = StateStopped
	status := s.statusLocked()
	s.mu.Unlock()

	s.notifier.Cancel(progressNotificationID)
	s.logger.Info("countdown cancelled")
	s.publish(status)
	return status, nil
}

// StopSound acknowledges a finished countdown and ends the run.
func (s *Service) StopSound() (Status, error) {
	s.mu.Lock()
	if s.state != StateFinished {
		state := s.state
		s.mu.Unlock()
		return Status{}, domainerrors.Conflict(fmt.Sprintf("countdown is %s, no alert to stop", state))
	}
	status := s.terminateLocked()
	s.mu.Unlock()

	s.cancelNotifications()
	s.logger.Info("alert stopped by reader")
	s.publish(status)
	return status, nil
}

// Status returns the current snapshot.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Shutdown stops callbacks and releases the alert sound.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	s.resetLocked()
	s.run++
	s.mu.Unlock()
	return nil
}

func (s *Service) onTick(run uint64) {
	s.mu.Lock()
	if run != s.run || s.state != StateRunning {
		s.mu.Unlock()
		return
	}

	s.remaining = max(s.deadline.Sub(s.clock.Now()), 0)
	if s.remaining > 0 {
		s.scheduleTickLocked(run)
		status := s.statusLocked()
		s.mu.Unlock()

		s.emitter.Emit(sse.NewEvent(sse.EventTimerTick, status))
		return
	}

	s.tick = nil
	s.state = StateFinished
	kind, err := s.alert.Acquire()
	if err != nil {
		s.logger.Error("alert sound could not be started", "error", err)
	}
	s.soundKind = kind
	s.timeout = s.clock.AfterFunc(s.cfg.AlertTimeout, func() { s.onAlertTimeout(run) })
	status := s.statusLocked()
	s.mu.Unlock()

	s.post(notify.Notification{
		ID:       finishedNotificationID,
		Channel:  notify.ChannelTimer,
		Priority: notify.PriorityHigh,
		Title:    "Reading timer",
		Text:     "Finished",
		Actions:  []notify.Action{{ID: notify.ActionStopSound, Label: "Stop"}},
	})

	s.logger.Info("countdown finished", "sound", kind)
	s.publish(status)
}

func (s *Service) onAlertTimeout(run uint64) {
	s.mu.Lock()
	if run != s.run || s.state != StateFinished {
		s.mu.Unlock()
		return
	}
	status := s.terminateLocked()
	s.mu.Unlock()

	s.cancelNotifications()
	s.logger.Info("alert timed out")
	s.publish(status)
}

// scheduleTickLocked arms the next tick, shortened so the last one lands on the deadline.
func (s *Service) scheduleTickLocked(run uint64) {
	next := min(s.cfg.TickInterval, s.remaining)
	s.tick = s.clock.AfterFunc(next, func() { s.onTick(run) })
}

func (s *Service) terminateLocked() Status {
	s.resetLocked()
	s.state = StateTerminated
	return s.statusLocked()
}

// resetLocked stops pending callbacks and releases the alert.
func (s *Service) resetLocked() {
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
	if s.timeout != nil {
		s.timeout.Stop()
		s.timeout = nil
	}
	s.alert.Release()
}

func (s *Service) statusLocked() Status {
	return Status{
		State:           s.state,
		DurationMillis:  s.duration.Milliseconds(),
		RemainingMillis: s.remaining.Milliseconds(),
		Readout:         Readout(s.remaining),
		SoundKind:       s.soundKind,
	}
}

func (s *Service) post(n notify.Notification) {
	if _, err := s.notifier.Post(n); err != nil {
		if domainerrors.Is(err, domainerrors.ErrPermissionDenied) {
			s.logger.Debug("timer notification suppressed", "notification_id", n.ID)
			return
		}
		s.logger.Warn("timer notification not shown", "notification_id", n.ID, "error", err)
	}
}

func (s *Service) cancelNotifications() {
	s.notifier.Cancel(progressNotificationID)
	s.notifier.Cancel(finishedNotificationID)
}

func (s *Service) publish(status Status) {
	s.emitter.Emit(sse.NewEvent(sse.EventTimerState, status))
}

// Readout formats d as HH:MM:SS, truncating to whole seconds.
func Readout(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
