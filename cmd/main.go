// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/campusbridge/exchange-events/internal/auth"
	"github.com/campusbridge/exchange-events/internal/cache"
	"github.com/campusbridge/exchange-events/internal/config"
	"github.com/campusbridge/exchange-events/internal/database"
	"github.com/campusbridge/exchange-events/internal/handler"
	"github.com/campusbridge/exchange-events/internal/messaging"
	"github.com/campusbridge/exchange-events/internal/metrics"
	"github.com/campusbridge/exchange-events/internal/repository"
	"github.com/campusbridge/exchange-events/internal/service"
)

func main() {
	ctx := context.Background()

	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	if cfg.Server.Env == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{})
		logrus.SetLevel(logrus.DebugLevel)
	}

	metrics.MustRegister()

	// ── 1. External clients ──────────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("connect to postgres")
	}
	defer pool.Close()
	logrus.Info("connected to postgres")

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logrus.WithError(err).Fatal("connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		logrus.Info("connected to redis")
	}

	publisher := messaging.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer publisher.Close()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	eventCache := cache.New(redisClient, cfg.App.CacheTTL)

	eventRepo := repository.NewEventRepository(pool)
	participationRepo := repository.NewParticipationRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)

	eventSvc := service.NewEventService(eventRepo, eventCache)
	participationSvc := service.NewParticipationService(
		participationRepo, cfg.Participation, publisher, eventCache,
	)
	profileSvc := service.NewProfileService(profileRepo)

	verifier := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Expiration)
	h := handler.NewEventHandler(eventSvc, participationSvc, profileSvc)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger)
	r.Use(handler.CORS)
	r.Use(verifier.Middleware)

	r.Get("/health", handler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)
		r.Post("/filter", h.FilterEvents)
		r.Get("/{id}", h.GetEvent)
		r.Post("/{id}/register", h.Register)
		r.Delete("/{id}/register", h.CancelRegistration)
		r.Get("/{id}/status", h.ParticipationStatus)
	})

	r.Route("/me", func(r chi.Router) {
		r.Get("/events", h.MyEvents)
		r.Get("/events/completed", h.MyCompletedEvents)
	})

	r.Get("/profiles/{id}", h.GetProfile)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Fatal("graceful shutdown failed")
	}
	logrus.Info("server stopped")
}
