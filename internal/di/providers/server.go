package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/pagetrack/pagetrack-server/internal/alarm"
	"github.com/pagetrack/pagetrack-server/internal/api"
	"github.com/pagetrack/pagetrack-server/internal/auth"
	"github.com/pagetrack/pagetrack-server/internal/config"
	"github.com/pagetrack/pagetrack-server/internal/logger"
	"github.com/pagetrack/pagetrack-server/internal/media/images"
	"github.com/pagetrack/pagetrack-server/internal/permission"
	"github.com/pagetrack/pagetrack-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	return errors.Join(err, h.api.Shutdown())
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	timerHandle := do.MustInvoke[*TimerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Session:     do.MustInvoke[*auth.Session](i),
		Book:        do.MustInvoke[*service.BookService](i),
		Alarm:       do.MustInvoke[*service.AlarmService](i),
		Goal:        do.MustInvoke[*service.GoalService](i),
		Timer:       timerHandle.Service,
		Permissions: do.MustInvoke[*permission.Set](i),
		Reconciler:  do.MustInvoke[*alarm.Reconciler](i),
		Covers:      do.MustInvoke[*images.Covers](i),
		Search:      indexHandle.SearchIndex,
	}

	opts := api.DefaultOptions()
	opts.CORSOrigins = cfg.Server.CORSOrigins

	handler := api.NewServer(storeHandle.Store, services, sseHandle.Manager, opts, log.Component("api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr, "public_url", cfg.Server.PublicURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
