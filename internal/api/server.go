// Package api provides the HTTP API server and handlers for pagetrack.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pagetrack/pagetrack-server/internal/alarm"
	"github.com/pagetrack/pagetrack-server/internal/auth"
	"github.com/pagetrack/pagetrack-server/internal/media/images"
	"github.com/pagetrack/pagetrack-server/internal/permission"
	"github.com/pagetrack/pagetrack-server/internal/ratelimit"
	"github.com/pagetrack/pagetrack-server/internal/search"
	"github.com/pagetrack/pagetrack-server/internal/service"
	"github.com/pagetrack/pagetrack-server/internal/sse"
	"github.com/pagetrack/pagetrack-server/internal/store"
	"github.com/pagetrack/pagetrack-server/internal/timer"
)

// Services groups everything the handlers call into.
type Services struct {
	Session     *auth.Session
	Book        *service.BookService
	Alarm       *service.AlarmService
	Goal        *service.GoalService
	Timer       *timer.Service
	Permissions *permission.Set
	Reconciler  *alarm.Reconciler
	Covers      *images.Covers
	Search      *search.SearchIndex // Health reporting only; may be nil
}

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins []string

	// AnonymousSignInRate limits POST /auth/anonymous per client IP, in requests per second.
	AnonymousSignInRate  float64
	AnonymousSignInBurst int
}

// DefaultOptions allows any origin and five anonymous sign-ins per minute per IP.
func DefaultOptions() Options {
	return Options{
		CORSOrigins:          []string{"*"},
		AnonymousSignInRate:  5.0 / 60.0,
		AnonymousSignInBurst: 5,
	}
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	services   *Services
	sseManager *sse.Manager
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger

	authRateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	router := chi.NewRouter()

	s := &Server{
		store:           st,
		services:        services,
		sseManager:      sseManager,
		router:          router,
		logger:          logger,
		authRateLimiter: ratelimit.New(opts.AnonymousSignInRate, opts.AnonymousSignInBurst),
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("pagetrack API", "1.0.0")
	humaConfig.Info.Description = "Reading log with book alarms, goals and a countdown timer"
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Shutdown stops background work owned by the server.
func (s *Server) Shutdown() error {
	s.authRateLimiter.Stop()
	return nil
}

func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerCoverRoutes()
	s.registerAlarmRoutes()
	s.registerGoalRoutes()
	s.registerTimerRoutes()
	s.registerSystemRoutes()

	// SSE stays on plain chi; huma has no streaming response type.
	stream := sse.NewHandler(s.sseManager, s.authenticateStream, s.watchDocuments, s.logger)
	s.router.Get("/api/v1/stream", stream.ServeHTTP)
}

// requestLogger logs one line per request at debug level, or warn for 5xx.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
