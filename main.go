package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"muhasabahAPI/handlers"
	"muhasabahAPI/internal/auth"
	"muhasabahAPI/internal/clock"
	"muhasabahAPI/internal/config"
	"muhasabahAPI/internal/gateway"
	"muhasabahAPI/internal/logger"
	"muhasabahAPI/internal/mailer"
	"muhasabahAPI/internal/metrics"
	"muhasabahAPI/internal/migrations"
	"muhasabahAPI/internal/notification"
	"muhasabahAPI/internal/workers"
	"muhasabahAPI/middleware"
	"muhasabahAPI/services"
)

var (
	cfg    *config.Config
	log    *zap.Logger
	dbPool *pgxpool.Pool
	clk    *clock.Clock

	tokens     *auth.TokenManager
	dispatcher *services.NotificationDispatcher

	userService         *services.UserService
	sittingService      *services.SittingService
	membershipService   *services.MembershipService
	checkInService      *services.CheckInService
	todoService         *services.TodoService
	swotService         *services.SwotService
	commentService      *services.CommentService
	notificationService *services.NotificationService
	navigationService   *services.NavigationService
	dashboardService    *services.DashboardService
	reminderService     *services.ReminderService
)

func init() {
	cfg = config.Load()
	log = logger.New(cfg.Log, cfg.IsDevelopment())

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to parse database URL", zap.Error(err))
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("failed to create connection pool", zap.Error(err))
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}
	log.Info("connected to database")

	applied, err := migrations.NewRunner(dbPool, log).Apply(ctx)
	if err != nil {
		log.Fatal("failed to apply migrations", zap.Error(err))
	}
	log.Info("migrations up to date", zap.Int("applied", applied))

	clk = clock.New(cfg.Location())
	tokens = auth.NewTokenManager(cfg.Auth)

	mail, err := mailer.New(cfg.SMTP, log)
	if err != nil {
		log.Fatal("failed to configure mailer", zap.Error(err))
	}
	gw := gateway.New(cfg.Termii, log)

	notificationService = services.NewNotificationService(dbPool, log)
	dispatcher = services.NewNotificationDispatcher(mail, notificationService, log)
	notificationService.SetDispatcher(dispatcher)

	fcmService, err := notification.NewFCMService(ctx, cfg.FCM, log)
	if err != nil {
		log.Warn("push notifications disabled", zap.Error(err))
	} else {
		dispatcher.SetPushProvider(fcmService)
		log.Info("fcm push provider initialized")
	}

	checkInService = services.NewCheckInService(dbPool, clk, log)
	membershipService = services.NewMembershipService(dbPool, checkInService, notificationService, dispatcher, clk, log)
	sittingService = services.NewSittingService(dbPool, clk)
	todoService = services.NewTodoService(dbPool)
	swotService = services.NewSwotService(dbPool, clk, log)
	commentService = services.NewCommentService(dbPool, notificationService, log)
	navigationService = services.NewNavigationService(dbPool)
	dashboardService = services.NewDashboardService(dbPool, checkInService, commentService, clk)
	reminderService = services.NewReminderService(dbPool, mail, gw, clk, log)
	userService = services.NewUserService(dbPool, tokens, dispatcher, cfg.FrontendURL, log)
}

func main() {
	defer func() {
		log.Info("closing database connection pool")
		dbPool.Close()
		_ = log.Sync()
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)
	middleware.InitPrometheus(registry)

	limiter := middleware.NewRateLimiter(cfg.Limits.RPS, cfg.Limits.Burst)

	routes := &handlers.Routes{
		Users:         handlers.NewUserHandler(userService, tokens, cfg.Auth.CookieSecure, log),
		Sittings:      handlers.NewSittingHandler(sittingService, membershipService, log),
		Todos:         handlers.NewTodoHandler(todoService, log),
		CheckIns:      handlers.NewCheckInHandler(checkInService, log),
		Swot:          handlers.NewSwotHandler(swotService, log),
		Comments:      handlers.NewCommentHandler(commentService, log),
		Notifications: handlers.NewNotificationHandler(notificationService, log),
		Navigation:    handlers.NewNavigationHandler(navigationService, log),
		Dashboard:     handlers.NewDashboardHandler(dashboardService, log),

		Auth:        middleware.NewAuthenticator(tokens, log),
		Limiter:     limiter,
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		MetricsUser: cfg.Metrics.User,
		MetricsPass: cfg.Metrics.Password,
		Ping:        dbPool.Ping,
		Log:         log,
	}
	r := routes.Router()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go limiter.CleanupVisitors(bgCtx)

	var scheduler *workers.Scheduler
	if cfg.Jobs.Enabled {
		var err error
		scheduler, err = workers.NewScheduler(cfg.Jobs, cfg.Location(), checkInService, reminderService, log)
		if err != nil {
			log.Fatal("failed to configure scheduler", zap.Error(err))
		}
		scheduler.Start()
	} else {
		log.Info("scheduled jobs disabled")
	}

	// CORS configuration
	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.CORSOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)
	recovery := gorillaHandlers.RecoveryHandler(
		gorillaHandlers.RecoveryLogger(zap.NewStdLog(log)),
		gorillaHandlers.PrintRecoveryStack(cfg.IsDevelopment()),
	)

	server := http.Server{
		Addr:         cfg.Addr(),
		Handler:      recovery(corsHandler(r)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("error starting server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("got signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	stopBackground()
	dispatcher.Stop()

	log.Info("server shutdown complete")
}
