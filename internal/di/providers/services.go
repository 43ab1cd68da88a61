package providers

import (
	"github.com/samber/do/v2"

	"github.com/pagetrack/pagetrack-server/internal/clock"
	"github.com/pagetrack/pagetrack-server/internal/config"
	"github.com/pagetrack/pagetrack-server/internal/logger"
	"github.com/pagetrack/pagetrack-server/internal/media/images"
	"github.com/pagetrack/pagetrack-server/internal/notify"
	"github.com/pagetrack/pagetrack-server/internal/permission"
	"github.com/pagetrack/pagetrack-server/internal/service"
	"github.com/pagetrack/pagetrack-server/internal/validation"
)

// ProvideClock provides the wall clock.
func ProvideClock(i do.Injector) (clock.Clock, error) {
	return clock.Real{}, nil
}

// ProvideValidator provides the shared struct validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvidePermissions provides the runtime capabilities, seeded from config.
func ProvidePermissions(i do.Injector) (*permission.Set, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	perms := permission.NewSet(permission.State{
		ExactAlarms:   cfg.Alarm.ExactAlarms,
		Notifications: cfg.Alarm.Notifications,
	})

	log.Info("Permissions initialized",
		"exact_alarms", cfg.Alarm.ExactAlarms,
		"notifications", cfg.Alarm.Notifications,
	)

	return perms, nil
}

// ProvideNotifyCenter provides the notification tray.
func ProvideNotifyCenter(i do.Injector) (*notify.Center, error) {
	perms := do.MustInvoke[*permission.Set](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return notify.NewCenter(perms, sseHandle.Manager, log.Component("notify")), nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	covers := do.MustInvoke[*images.Covers](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, indexHandle.SearchIndex, covers, v, log.Component("books")), nil
}

// ProvideAlarmService provides the alarm service.
func ProvideAlarmService(i do.Injector) (*service.AlarmService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	schedulerHandle := do.MustInvoke[*SchedulerHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	clk := do.MustInvoke[clock.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAlarmService(storeHandle.Store, schedulerHandle.Scheduler, v, clk, log.Component("alarms")), nil
}

// ProvideGoalService provides the goal service.
func ProvideGoalService(i do.Injector) (*service.GoalService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	books := do.MustInvoke[*service.BookService](i)
	v := do.MustInvoke[*validation.Validator](i)
	clk := do.MustInvoke[clock.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewGoalService(storeHandle.Store, books, v, clk, log.Component("goals")), nil
}
