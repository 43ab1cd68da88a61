package alarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pagetrack/pagetrack-server/internal/clock"
	"github.com/pagetrack/pagetrack-server/internal/domain"
)

// UserLister lists every stored user.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// AlarmStore lists and deletes a user's alarms.
type AlarmStore interface {
	ListAlarms(ctx context.Context, userID string) ([]*domain.AlarmItem, error)
	DeleteAlarm(ctx context.Context, userID, alarmID string) error
}

// Result summarises one reconciliation run.
type Result struct {
	UserID  string `json:"userId,omitempty"`
	Total   int    `json:"total"`
	Deleted int    `json:"deleted"`
	Rearmed int    `json:"rearmed"`
}

// Reconciler restores scheduler state from persisted alarms after a restart.
type Reconciler struct {
	users     UserLister
	store     AlarmStore
	scheduler *Scheduler
	clock     clock.Clock
	logger    *slog.Logger

	deleteConcurrency int
}

// NewReconciler creates a Reconciler.
func NewReconciler(users UserLister, store AlarmStore, scheduler *Scheduler, clk clock.Clock, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		users:             users,
		store:             store,
		scheduler:         scheduler,
		clock:             clk,
		logger:            logger,
		deleteConcurrency: 4,
	}
}

// ReconcileAll reconciles the alarms of every stored user. A failure for one
// user is logged and does not stop the others; the failures are returned
// joined. Without users it does nothing.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]Result, error) {
	userIDs, err := r.users.ListUserIDs(ctx)
	if err != nil {
		r.logger.Error("reconcile: failed to list users", "error", err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	if len(userIDs) == 0 {
		r.logger.Info("reconcile: no users, nothing to restore")
		return nil, nil
	}

	results := make([]Result, 0, len(userIDs))
	var errs []error
	for _, userID := range userIDs {
		result, err := r.Reconcile(ctx, userID)
		if err != nil {
			errs = append(errs, err)
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// Reconcile deletes the user's alarms whose deadline has passed and re-arms
// the rest. When the alarms cannot be listed nothing is deleted or armed.
// Deletion failures are logged and not counted. Running it again re-arms the
// same set without duplicating wake-ups.
func (r *Reconciler) Reconcile(ctx context.Context, userID string) (Result, error) {
	alarms, err := r.store.ListAlarms(ctx, userID)
	if err != nil {
		r.logger.Error("reconcile: failed to list alarms", "user_id", userID, "error", err)
		return Result{UserID: userID}, fmt.Errorf("list alarms of %s: %w", userID, err)
	}

	now := r.clock.Now()
	result := Result{UserID: userID, Total: len(alarms)}

	var deleted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.deleteConcurrency)

	for _, alarm := range alarms {
		// The scheduler arms nothing at or before now, so such alarms are stale too.
		if alarm.Deadline().After(now) {
			if r.scheduler.Schedule(userID, alarm) {
				result.Rearmed++
			}
			continue
		}

		g.Go(func() error {
			if err := r.store.DeleteAlarm(gctx, userID, alarm.AlarmID); err != nil {
				r.logger.Error("reconcile: failed to delete expired alarm",
					"user_id", userID,
					"alarm_id", alarm.AlarmID,
					"error", err)
				return nil
			}
			deleted.Add(1)
			return nil
		})
	}

	_ = g.Wait()
	result.Deleted = int(deleted.Load())

	r.logger.Info("reconcile complete",
		"user_id", userID,
		"total", result.Total,
		"deleted", result.Deleted,
		"rearmed", result.Rearmed)

	return result, nil
}
