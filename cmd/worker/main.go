package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetuphere/config"
	"meetuphere/internal/bootstrap"
	deliveryhttp "meetuphere/internal/delivery/http"
	"meetuphere/internal/delivery/http/controllers"
	"meetuphere/internal/delivery/http/middleware"
	"meetuphere/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("", "").Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel).With("component", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	pipeline, err := deps.Pipeline(ctx)
	if err != nil {
		logger.Error("pipeline setup failed", "err", err)
		os.Exit(1)
	}
	source, err := deps.Queue(ctx)
	if err != nil {
		logger.Error("queue unavailable", "provider", cfg.Queue.Provider, "err", err)
		os.Exit(1)
	}

	consumer := worker.NewConsumer(logger, source, pipeline, worker.ConsumerConfig{
		Concurrency:        cfg.Worker.Concurrency,
		DeadLetterFailures: cfg.Worker.DeadLetterFailures,
		ReceiveBackoff:     cfg.Worker.ReceiveBackoff,
	})
	consumerDone := make(chan error, 1)
	go func() {
		err := consumer.Run(ctx)
		if err != nil {
			stop()
		}
		consumerDone <- err
	}()

	router := deliveryhttp.NewWorkerRouter(controllers.NewWorkerController(logger, pipeline, cfg.Worker.DeadLetterFailures))
	srv := &http.Server{
		Addr:              ":" + cfg.WorkerPort,
		Handler:           middleware.LoggingMiddleware(logger, router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("worker listening", "port", cfg.WorkerPort, "queue", cfg.Queue.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "err", err)
	}
	exitCode := 0
	select {
	case err := <-consumerDone:
		if err != nil {
			logger.Error("consumer stopped with error", "err", err)
			exitCode = 1
		}
	case <-shutdownCtx.Done():
		logger.Error("consumer did not drain before shutdown deadline")
	}
	logger.Info("worker exited")
	if exitCode != 0 {
		deps.Close()
		os.Exit(exitCode)
	}
}
