package timer

import (
	"fmt"
	"log/slog"
	"sync"
)

// DeviceSounds is the server's stand-in for the device speaker: playback is
// recorded and logged, and the alarm sound can be marked unavailable.
type DeviceSounds struct {
	logger         *slog.Logger
	alarmAvailable bool

	mu      sync.Mutex
	playing map[*deviceSound]struct{}
}

// NewDeviceSounds creates a sound source.
func NewDeviceSounds(alarmAvailable bool, logger *slog.Logger) *DeviceSounds {
	return &DeviceSounds{
		logger:         logger,
		alarmAvailable: alarmAvailable,
		playing:        make(map[*deviceSound]struct{}),
	}
}

// Open implements SoundSource.
func (d *DeviceSounds) Open(kind SoundKind) (Sound, error) {
	switch kind {
	case SoundAlarm:
		if !d.alarmAvailable {
			return nil, fmt.Errorf("%w: %s", ErrSoundUnavailable, kind)
		}
	case SoundNotification:
	default:
		return nil, fmt.Errorf("%w: %s", ErrSoundUnavailable, kind)
	}
	return &deviceSound{owner: d, kind: kind}, nil
}

// Playing returns how many sounds are currently looping.
func (d *DeviceSounds) Playing() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.playing)
}

type deviceSound struct {
	owner    *DeviceSounds
	kind     SoundKind
	released bool
}

func (s *deviceSound) Play() error {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()

	if s.released {
		return fmt.Errorf("play released %s sound", s.kind)
	}
	s.owner.playing[s] = struct{}{}
	s.owner.logger.Info("sound loop started", "kind", s.kind)
	return nil
}

func (s *deviceSound) Stop() {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()

	if _, ok := s.owner.playing[s]; ok {
		delete(s.owner.playing, s)
		s.owner.logger.Info("sound loop stopped", "kind", s.kind)
	}
}

func (s *deviceSound) Release() {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()

	delete(s.owner.playing, s)
	s.released = true
}

func (s *deviceSound) Kind() SoundKind { return s.kind }
