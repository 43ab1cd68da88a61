package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pagetrack/pagetrack-server/internal/domain"
)

// PutAlarm writes an alarm under its client-generated id, replacing any existing one.
func (s *Store) PutAlarm(ctx context.Context, userID string, alarm *domain.AlarmItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := documentKey(userID, CollectionAlarms, alarm.AlarmID)
	if err != nil {
		return err
	}
	if err := s.set(key, alarm); err != nil {
		return fmt.Errorf("put alarm: %w", err)
	}
	return nil
}

// GetAlarm retrieves an alarm by id.
func (s *Store) GetAlarm(ctx context.Context, userID, alarmID string) (*domain.AlarmItem, error) {
	alarm, err := s.Alarms.Get(ctx, userID, alarmID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAlarmNotFound
	}
	return alarm, err
}

// DeleteAlarm removes an alarm. Missing alarms are not an error.
func (s *Store) DeleteAlarm(ctx context.Context, userID, alarmID string) error {
	return s.Alarms.Delete(ctx, userID, alarmID)
}

// ListAlarms returns every alarm of the user.
func (s *Store) ListAlarms(ctx context.Context, userID string) ([]*domain.AlarmItem, error) {
	alarms, err := s.Alarms.All(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	return alarms, nil
}
