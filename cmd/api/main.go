package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"meetuphere/config"
	_ "meetuphere/docs"
	"meetuphere/internal/adapters/auth"
	"meetuphere/internal/bootstrap"
	deliveryhttp "meetuphere/internal/delivery/http"
	"meetuphere/internal/delivery/http/controllers"
	"meetuphere/internal/delivery/http/middleware"
	"meetuphere/internal/services"
	"meetuphere/internal/worker"
)

// @title           meetuphere API
// @version         1.0
// @description     Check-in ingestion and phone registration for Meetup venue notifications.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("", "").Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	q, err := deps.Queue(ctx)
	if err != nil {
		logger.Error("queue unavailable", "provider", cfg.Queue.Provider, "err", err)
		os.Exit(1)
	}
	contacts, err := deps.Contacts()
	if err != nil {
		logger.Error("contact store unavailable", "store", cfg.Contacts.Store, "err", err)
		os.Exit(1)
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set, phone registration will reject every token")
		jwtSecret = uuid.NewString()
	}

	ingest := services.NewIngestService(q, validator.New(validator.WithRequiredStructEnabled()))
	router := deliveryhttp.NewAPIRouter(
		logger,
		controllers.NewCheckinController(logger, ingest, cfg.PushSecret),
		controllers.NewPhoneController(logger, contacts),
		auth.NewJWTVerifier(jwtSecret),
		middleware.NewCORSPolicy(cfg.AllowedOrigins),
	)
	handler := middleware.LoggingMiddleware(logger, router)

	// The in-process queue has no other reader, so consume it here.
	consumerDone := make(chan struct{})
	if cfg.Queue.Provider == "memory" {
		pipeline, err := deps.Pipeline(ctx)
		if err != nil {
			logger.Error("pipeline setup failed", "err", err)
			os.Exit(1)
		}
		consumer := worker.NewConsumer(logger, q, pipeline, worker.ConsumerConfig{
			Concurrency:        cfg.Worker.Concurrency,
			DeadLetterFailures: cfg.Worker.DeadLetterFailures,
			ReceiveBackoff:     cfg.Worker.ReceiveBackoff,
		})
		go func() {
			defer close(consumerDone)
			_ = consumer.Run(ctx)
		}()
	} else {
		close(consumerDone)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("api listening", "port", cfg.Port, "queue", cfg.Queue.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-deps.Lost():
		logger.Error("queue connection lost", "err", err)
		exitCode = 1
		stop()
	}
	logger.Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "err", err)
	}
	<-consumerDone
	logger.Info("api exited")
	if exitCode != 0 {
		deps.Close()
		os.Exit(exitCode)
	}
}
