package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/qline/booking-api/internal/config"
	appointmenthandler "github.com/qline/booking-api/internal/handler/appointment"
	authhandler "github.com/qline/booking-api/internal/handler/auth"
	branchhandler "github.com/qline/booking-api/internal/handler/branch"
	displayhandler "github.com/qline/booking-api/internal/handler/display"
	healthhandler "github.com/qline/booking-api/internal/handler/health"
	queuehandler "github.com/qline/booking-api/internal/handler/queue"
	"github.com/qline/booking-api/internal/middleware"
	"github.com/qline/booking-api/internal/repository/postgres"
	"github.com/qline/booking-api/internal/router"
	appointmentservice "github.com/qline/booking-api/internal/service/appointment"
	authservice "github.com/qline/booking-api/internal/service/auth"
	branchservice "github.com/qline/booking-api/internal/service/branch"
	"github.com/qline/booking-api/internal/service/callout"
	"github.com/qline/booking-api/internal/service/notification"
	queueservice "github.com/qline/booking-api/internal/service/queue"
	slotservice "github.com/qline/booking-api/internal/service/slot"
	"github.com/qline/booking-api/pkg/auth"
	"github.com/qline/booking-api/pkg/logger"
	"github.com/qline/booking-api/pkg/metrics"
	"github.com/qline/booking-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("booking")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	branchRepo := postgres.NewBranchRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	queueRepo := postgres.NewQueueRepository(db)
	staffRepo := postgres.NewStaffRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	notifier := notification.NewService(outboxRepo, appLogger)
	branchSvc := branchservice.NewService(branchRepo)
	slotSvc := slotservice.NewService(branchRepo, appointmentRepo)
	appointmentSvc := appointmentservice.NewService(appointmentRepo, branchSvc, slotSvc, notifier, appMetrics)
	queueSvc := queueservice.NewService(queueRepo, appointmentRepo, branchSvc, notifier, appMetrics)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours, cfg.JWT.Issuer)
	hasher := security.NewBcryptHasher(0)
	authSvc := authservice.NewService(staffRepo, jwtSvc, hasher, appLogger)

	// The API serves the display feed, so the call-out poller runs here;
	// announce events flow through the outbox like every other notification.
	poller := callout.NewPoller(branchRepo, queueRepo, notifier, appMetrics, appLogger, cfg.CallOut.PollInterval)
	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	go poller.Run(pollerCtx)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)
	authHandler := authhandler.NewHandler(authSvc)
	appointmentHandler := appointmenthandler.NewHandler(appointmentSvc, slotSvc)
	queueHandler := queuehandler.NewHandler(queueSvc)
	branchHandler := branchhandler.NewHandler(branchSvc)
	displayHandler := displayhandler.NewHandler(poller)
	healthHandler := healthhandler.NewHandler(db)

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Security.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Security.AllowedOrigins
	}

	r := router.NewRouter(
		authMiddleware,
		authHandler,
		appointmentHandler,
		queueHandler,
		branchHandler,
		displayHandler,
		healthHandler,
		router.Config{
			RateLimit:      rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:      cfg.RateLimit.Burst,
			RequestTimeout: cfg.Server.RequestTimeout,
			CORS:           corsConfig,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	stopPoller()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("server exited")
}
