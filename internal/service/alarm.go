package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/pagetrack/pagetrack-server/internal/clock"
	"github.com/pagetrack/pagetrack-server/internal/domain"
	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
	"github.com/pagetrack/pagetrack-server/internal/id"
	"github.com/pagetrack/pagetrack-server/internal/store"
	"github.com/pagetrack/pagetrack-server/internal/validation"
)

// AlarmScheduler arms and cancels alarm wake-ups. Wake-ups belong to a user;
// the same alarm id under two users names two wake-ups.
type AlarmScheduler interface {
	Schedule(userID string, alarm *domain.AlarmItem) bool
	Cancel(userID, alarmID string)
	IsScheduled(userID, alarmID string) bool
}

// AlarmInput holds the fields of a new alarm. AlarmID is optional.
type AlarmInput struct {
	AlarmID        string
	BookID         string
	DeadlineMillis int64
	Message        string
}

// AlarmView is an alarm together with whether a wake-up is armed for it.
type AlarmView struct {
	*domain.AlarmItem
	Scheduled bool `json:"scheduled"`
}

// AlarmService orchestrates alarm operations.
type AlarmService struct {
	store     *store.Store
	scheduler AlarmScheduler
	validator *validation.Validator
	clock     clock.Clock
	logger    *slog.Logger
}

// NewAlarmService creates a new alarm service.
func NewAlarmService(
	store *store.Store,
	scheduler AlarmScheduler,
	validator *validation.Validator,
	clk clock.Clock,
	logger *slog.Logger,
) *AlarmService {
	return &AlarmService{
		store:     store,
		scheduler: scheduler,
		validator: validator,
		clock:     clk,
		logger:    logger,
	}
}

// CreateAlarm stores an alarm for a book and then arms its wake-up.
// A missing AlarmID is replaced by a fresh UUID. The alarm is stored even when
// the wake-up cannot be armed; View.Scheduled reports which happened.
func (s *AlarmService) CreateAlarm(ctx context.Context, userID string, in AlarmInput) (*AlarmView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alarm := &domain.AlarmItem{
		AlarmID:        in.AlarmID,
		BookID:         in.BookID,
		DeadlineMillis: in.DeadlineMillis,
		Message:        in.Message,
	}
	if alarm.AlarmID == "" {
		alarm.AlarmID = id.NewClientID()
	}
	if err := s.validator.Validate(alarm); err != nil {
		return nil, err
	}
	if !alarm.Deadline().After(s.clock.Now()) {
		return nil, domainerrors.ValidationWithDetails("validation failed",
			map[string]string{"deadlineMillis": "must be in the future"})
	}

	book, err := s.store.GetBook(ctx, userID, alarm.BookID)
	if err != nil {
		return nil, err
	}
	alarm.BookName = book.Name
	alarm.BookImageURL = book.ImageURL

	if err := s.store.PutAlarm(ctx, userID, alarm); err != nil {
		return nil, fmt.Errorf("store alarm: %w", err)
	}

	scheduled := s.scheduler.Schedule(userID, alarm)
	if !scheduled {
		s.logger.Warn("alarm stored but not armed",
			"alarm_id", alarm.AlarmID,
			"user_id", userID)
	}

	s.logger.Info("alarm created",
		"alarm_id", alarm.AlarmID,
		"book_id", alarm.BookID,
		"user_id", userID,
		"deadline", alarm.Deadline())

	return &AlarmView{AlarmItem: alarm, Scheduled: scheduled}, nil
}

// ListAlarms returns the user's alarms ordered by deadline.
func (s *AlarmService) ListAlarms(ctx context.Context, userID string) ([]AlarmView, error) {
	alarms, err := s.store.ListAlarms(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	slices.SortFunc(alarms, func(a, b *domain.AlarmItem) int {
		return cmp.Or(
			cmp.Compare(a.DeadlineMillis, b.DeadlineMillis),
			cmp.Compare(a.AlarmID, b.AlarmID),
		)
	})

	views := make([]AlarmView, 0, len(alarms))
	for _, alarm := range alarms {
		views = append(views, AlarmView{
			AlarmItem: alarm,
			Scheduled: s.scheduler.IsScheduled(userID, alarm.AlarmID),
		})
	}
	return views, nil
}

// DeleteAlarm cancels the alarm's wake-up and removes it.
// Deleting an alarm the user does not have is not an error and leaves every
// wake-up alone.
func (s *AlarmService) DeleteAlarm(ctx context.Context, userID, alarmID string) error {
	if _, err := s.store.GetAlarm(ctx, userID, alarmID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Debug("delete of unknown alarm ignored", "alarm_id", alarmID, "user_id", userID)
			return nil
		}
		return err
	}

	s.scheduler.Cancel(userID, alarmID)

	if err := s.store.DeleteAlarm(ctx, userID, alarmID); err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}

	s.logger.Info("alarm deleted", "alarm_id", alarmID, "user_id", userID)
	return nil
}
