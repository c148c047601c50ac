package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/qline/booking-api/internal/config"
	"github.com/qline/booking-api/internal/email"
	"github.com/qline/booking-api/internal/repository/postgres"
	"github.com/qline/booking-api/internal/service/notification"
	internalworker "github.com/qline/booking-api/internal/worker"
	"github.com/qline/booking-api/pkg/logger"
	redisbroker "github.com/qline/booking-api/pkg/messaging/redis"
	"github.com/qline/booking-api/pkg/metrics"
	"github.com/qline/booking-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("booking_worker")

	db, err := postgres.NewDB(cfg.Database())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	zl := zerolog.New(os.Stdout).With().Timestamp().Logger()
	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.RedisURL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	branchRepo := postgres.NewBranchRepository(db)
	notifier := notification.NewService(outboxRepo, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:    cfg.OutboxBatchSize,
		PollInterval: cfg.OutboxInterval,
		MaxRetries:   cfg.OutboxRetries,
		RetryDelay:   cfg.OutboxRetryDelay,
	}, appLogger, appMetrics)
	wg.Add(1)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()

	emailSvc := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, appLogger)
	dispatcher := email.NewDispatcher(broker, emailSvc, appLogger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	if cfg.ReminderEnabled {
		sweeper := internalworker.NewReminderSweeper(appointmentRepo, branchRepo, notifier, appLogger, cfg.ReminderInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Start(ctx)
		}()
	}

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		appLogger.Info("serving worker metrics", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error(err, "metrics server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down worker")

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "metrics server shutdown failed")
	}

	appLogger.Info("worker exited")
}
