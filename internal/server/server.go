// Package server provides the HTTP server and routing for Harborwatch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	appconfig "github.com/harborline/harborwatch/internal/config"
	"github.com/harborline/harborwatch/internal/database"
	"github.com/harborline/harborwatch/internal/events"
	"github.com/harborline/harborwatch/internal/modules/analytics"
	analyticshandlers "github.com/harborline/harborwatch/internal/modules/analytics/handlers"
	"github.com/harborline/harborwatch/internal/modules/containers"
	containerhandlers "github.com/harborline/harborwatch/internal/modules/containers/handlers"
	"github.com/harborline/harborwatch/internal/modules/exceptions"
	exceptionhandlers "github.com/harborline/harborwatch/internal/modules/exceptions/handlers"
	"github.com/harborline/harborwatch/internal/modules/notifications"
	notificationhandlers "github.com/harborline/harborwatch/internal/modules/notifications/handlers"
	"github.com/harborline/harborwatch/internal/modules/users"
	userhandlers "github.com/harborline/harborwatch/internal/modules/users/handlers"
	"github.com/harborline/harborwatch/internal/risk"
	riskhandlers "github.com/harborline/harborwatch/internal/risk/handlers"
	"github.com/harborline/harborwatch/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log           zerolog.Logger
	Config        *appconfig.Config
	TrackingDB    *database.DB
	CacheDB       *database.DB
	Containers    *containers.Repository
	Exceptions    *exceptions.Repository
	Notifications *notifications.Repository
	Users         *users.Repository
	Engine        *risk.Engine
	Analytics     *analytics.Service
	Bus           *events.Bus
	JobHistory    *scheduler.JobHistoryRepository
	Tracking      TrackingStatus // optional, nil when no websocket feed
	SyncJob       scheduler.Job  // optional, nil when sync is not wired
	Scheduler     *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            Config
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
	}

	s.systemHandlers = NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		map[string]*database.DB{
			"tracking": cfg.TrackingDB,
			"cache":    cfg.CacheDB,
		},
		cfg.JobHistory,
		cfg.Tracking,
		cfg.Scheduler,
		cfg.SyncJob,
	)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Unified events stream (SSE)
		eventsStream := NewEventsStreamHandler(s.cfg.Bus, s.log)
		r.Get("/events/stream", eventsStream.ServeHTTP)

		containerHandler := containerhandlers.NewContainerHandlers(
			s.cfg.Containers,
			s.cfg.Engine,
			s.cfg.Exceptions,
			s.log,
		)
		containerHandler.RegisterRoutes(r)

		exceptionHandler := exceptionhandlers.NewExceptionHandlers(s.cfg.Exceptions, s.log)
		exceptionHandler.RegisterRoutes(r)

		notificationHandler := notificationhandlers.NewNotificationHandlers(s.cfg.Notifications, s.log)
		notificationHandler.RegisterRoutes(r)

		userHandler := userhandlers.NewUserHandlers(s.cfg.Users, s.log)
		userHandler.RegisterRoutes(r)

		riskHandler := riskhandlers.NewRiskHandlers(s.cfg.Engine, s.cfg.Containers, s.log)
		riskHandler.RegisterRoutes(r)

		analyticsHandler := analyticshandlers.NewAnalyticsHandlers(s.cfg.Analytics, s.log)
		analyticsHandler.RegisterRoutes(r)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
			r.Post("/sync", s.systemHandlers.HandleTriggerSync)
		})
	})
}

// handleHealth responds to health checks
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.cfg.TrackingDB.HealthCheck(ctx); err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Config.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
