// Package di provides dependency injection configuration for the pagetrack server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/pagetrack/pagetrack-server/internal/alarm"
	"github.com/pagetrack/pagetrack-server/internal/auth"
	"github.com/pagetrack/pagetrack-server/internal/config"
	"github.com/pagetrack/pagetrack-server/internal/di/providers"
	"github.com/pagetrack/pagetrack-server/internal/logger"
	"github.com/pagetrack/pagetrack-server/internal/media/images"
	"github.com/pagetrack/pagetrack-server/internal/notify"
	"github.com/pagetrack/pagetrack-server/internal/permission"
	"github.com/pagetrack/pagetrack-server/internal/prefs"
	"github.com/pagetrack/pagetrack-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideClock)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvidePrefs)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideCovers)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideSession)

	// Device capabilities
	do.Provide(injector, providers.ProvidePermissions)
	do.Provide(injector, providers.ProvideNotifyCenter)

	// Workers
	do.Provide(injector, providers.ProvideScheduler)
	do.Provide(injector, providers.ProvideReconciler)
	do.Provide(injector, providers.ProvideTimer)

	// Business services
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideAlarmService)
	do.Provide(injector, providers.ProvideGoalService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*prefs.Prefs](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*images.Covers](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*auth.Session](injector)
	_ = do.MustInvoke[*permission.Set](injector)
	_ = do.MustInvoke[*notify.Center](injector)

	// Workers
	_ = do.MustInvoke[*providers.SchedulerHandle](injector)
	_ = do.MustInvoke[*alarm.Reconciler](injector)
	_ = do.MustInvoke[*providers.TimerHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.AlarmService](injector)
	_ = do.MustInvoke[*service.GoalService](injector)

	// Restore alarms before requests can change them
	providers.RunBootReconcile(injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
