package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/pagetrack/pagetrack-server/internal/alarm"
	"github.com/pagetrack/pagetrack-server/internal/auth"
	"github.com/pagetrack/pagetrack-server/internal/clock"
	"github.com/pagetrack/pagetrack-server/internal/config"
	"github.com/pagetrack/pagetrack-server/internal/logger"
	"github.com/pagetrack/pagetrack-server/internal/notify"
	"github.com/pagetrack/pagetrack-server/internal/permission"
	"github.com/pagetrack/pagetrack-server/internal/timer"
)

// SchedulerHandle wraps the alarm scheduler with shutdown capability.
type SchedulerHandle struct {
	*alarm.Scheduler
}

// Shutdown implements do.Shutdownable.
func (h *SchedulerHandle) Shutdown() error {
	return h.Scheduler.Shutdown()
}

// ProvideScheduler provides the alarm scheduler with its wake-up handler.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	clk := do.MustInvoke[clock.Clock](i)
	perms := do.MustInvoke[*permission.Set](i)
	center := do.MustInvoke[*notify.Center](i)
	session := do.MustInvoke[*auth.Session](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	alarmLog := log.Component("alarm")
	handler := alarm.NewHandler(center, session, storeHandle.Store, alarmLog)

	return &SchedulerHandle{Scheduler: alarm.NewScheduler(clk, perms, handler, alarmLog)}, nil
}

// ProvideReconciler provides the boot reconciler.
func ProvideReconciler(i do.Injector) (*alarm.Reconciler, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	schedulerHandle := do.MustInvoke[*SchedulerHandle](i)
	clk := do.MustInvoke[clock.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return alarm.NewReconciler(storeHandle.Store, storeHandle.Store, schedulerHandle.Scheduler, clk, log.Component("alarm")), nil
}

// RunBootReconcile restores the alarms of every stored user. Failures are
// logged; the server keeps running.
func RunBootReconcile(i do.Injector) {
	reconciler := do.MustInvoke[*alarm.Reconciler](i)
	log := do.MustInvoke[*logger.Logger](i)

	results, err := reconciler.ReconcileAll(context.Background())
	if err != nil {
		log.Error("Boot reconciliation incomplete", "error", err)
	}

	var deleted, rearmed int
	for _, result := range results {
		deleted += result.Deleted
		rearmed += result.Rearmed
	}
	log.Info("Boot reconciliation done",
		"users", len(results),
		"deleted", deleted,
		"rearmed", rearmed,
	)
}

// TimerHandle wraps the countdown service with shutdown capability.
type TimerHandle struct {
	*timer.Service
}

// Shutdown implements do.Shutdownable.
func (h *TimerHandle) Shutdown() error {
	return h.Service.Shutdown()
}

// ProvideTimer provides the countdown timer service.
func ProvideTimer(i do.Injector) (*TimerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	clk := do.MustInvoke[clock.Clock](i)
	center := do.MustInvoke[*notify.Center](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	timerLog := log.Component("timer")
	alert := timer.NewAlertSupervisor(timer.NewDeviceSounds(cfg.Timer.AlarmSoundable, timerLog), timerLog)

	svc := timer.NewService(clk, center, alert, sseHandle.Manager, timer.Config{
		TickInterval: cfg.Timer.TickInterval,
		AlertTimeout: cfg.Timer.AlertTimeout,
	}, timerLog)

	log.Info("Countdown timer ready",
		"tick_interval", cfg.Timer.TickInterval,
		"alert_timeout", cfg.Timer.AlertTimeout,
	)

	return &TimerHandle{Service: svc}, nil
}
