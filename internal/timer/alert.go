package timer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// SoundKind selects which device sound to use for the alert.
type SoundKind string

const (
	SoundAlarm        SoundKind = "alarm"
	SoundNotification SoundKind = "notification"
)

// ErrSoundUnavailable is returned by a SoundSource that has no sound of a kind.
var ErrSoundUnavailable = errors.New("sound unavailable")

// Sound is a looping playback handle.
type Sound interface {
	Play() error
	Stop()
	Release()
	Kind() SoundKind
}

// SoundSource opens playback handles.
type SoundSource interface {
	Open(kind SoundKind) (Sound, error)
}

// AlertSupervisor owns the single alert sound. Acquiring a new alert always
// stops and releases the previous one first.
type AlertSupervisor struct {
	source SoundSource
	logger *slog.Logger

	mu      sync.Mutex
	current Sound
}

// NewAlertSupervisor creates a supervisor over source.
func NewAlertSupervisor(source SoundSource, logger *slog.Logger) *AlertSupervisor {
	return &AlertSupervisor{source: source, logger: logger}
}

// Acquire starts a looping alert, preferring the alarm sound and falling back
// to the notification sound.
func (a *AlertSupervisor) Acquire() (SoundKind, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.releaseLocked()

	sound, err := a.source.Open(SoundAlarm)
	if err != nil {
		a.logger.Warn("alarm sound unavailable, falling back to notification sound", "error", err)
		sound, err = a.source.Open(SoundNotification)
		if err != nil {
			return "", fmt.Errorf("open alert sound: %w", err)
		}
	}

	if err := sound.Play(); err != nil {
		sound.Release()
		return "", fmt.Errorf("play alert sound: %w", err)
	}

	a.current = sound
	a.logger.Info("alert sound playing", "kind", sound.Kind())
	return sound.Kind(), nil
}

// Release stops and frees the current alert. It is safe to call repeatedly.
func (a *AlertSupervisor) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

// Active reports whether an alert is currently held.
func (a *AlertSupervisor) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil
}

func (a *AlertSupervisor) releaseLocked() {
	if a.current == nil {
		return
	}
	a.current.Stop()
	a.current.Release()
	a.logger.Debug("alert sound released", "kind", a.current.Kind())
	a.current = nil
}
