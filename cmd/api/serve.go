// AngelaMos | 2026
// serve.go

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/taskispace/api/internal/admin"
	"github.com/taskispace/api/internal/auth"
	"github.com/taskispace/api/internal/billing"
	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/events"
	"github.com/taskispace/api/internal/friend"
	"github.com/taskispace/api/internal/health"
	"github.com/taskispace/api/internal/jarvis"
	"github.com/taskispace/api/internal/middleware"
	"github.com/taskispace/api/internal/migrations"
	"github.com/taskispace/api/internal/notification"
	"github.com/taskispace/api/internal/scheduler"
	"github.com/taskispace/api/internal/server"
	"github.com/taskispace/api/internal/task"
	"github.com/taskispace/api/internal/usage"
	"github.com/taskispace/api/internal/user"
	"github.com/taskispace/api/internal/workspace"
)

const (
	drainDelay = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the TaskiSpace API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

//nolint:funlen,gocyclo // bootstrap code is inherently verbose
func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, redis, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("storage connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"redis_pool_size", cfg.Redis.PoolSize,
	)

	if cfg.Database.MigrateOnStart {
		applied, migrateErr := migrations.Up(db.DB.DB)
		if migrateErr != nil {
			closeAll(logger, db, redis)
			return migrateErr
		}
		logger.Info("migrations applied", "count", applied)
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		closeAll(logger, db, redis)
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	bus := events.NewBus(logger)

	billingSvc, limiter := newBilling(cfg, db, redis, bus, logger)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	billingSvc.SetEmailLookup(func(ctx context.Context, userID string) (string, error) {
		info, lookupErr := userSvc.GetByID(ctx, userID)
		if lookupErr != nil {
			return "", lookupErr
		}
		return info.Email, nil
	})

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, userSvc, billingSvc, redis.Client, logger)
	authHandler := auth.NewHandler(authSvc)

	workspaceSvc := workspace.NewService(workspace.NewRepository(db.DB), limiter, logger)
	taskSvc := task.NewService(task.NewRepository(db.DB), workspaceSvc, limiter, logger)
	friendSvc := friend.NewService(friend.NewRepository(db.DB), limiter, bus, logger)

	notificationSvc := notification.NewService(notification.NewRepository(db.DB), logger)
	if err := notificationSvc.Subscribe(bus); err != nil {
		closeAll(logger, db, redis)
		return err
	}

	var assistant jarvis.Assistant = jarvis.RuleAssistant{}
	if cfg.Jarvis.Enabled {
		assistant = jarvis.NewBreakerAssistant(
			jarvis.NewHTTPAssistant(cfg.Jarvis), cfg.Jarvis, logger,
		)
		logger.Info("jarvis assistant enabled", "model", cfg.Jarvis.Model)
	}
	jarvisSvc := jarvis.NewService(jarvis.ServiceDeps{
		Repo:             jarvis.NewRepository(db.DB),
		Assistant:        assistant,
		Limiter:          limiter,
		Tasks:            taskSvc,
		Workspaces:       workspaceSvc,
		Bus:              bus,
		MaxContextTokens: cfg.Jarvis.MaxContextTokens,
		Logger:           logger,
	})

	var (
		jobs  admin.JobRunner
		sched *scheduler.Scheduler
	)
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(logger)
		if err := scheduler.RegisterHousekeeping(sched, cfg.Scheduler, authRepo, limiter); err != nil {
			closeAll(logger, db, redis)
			return err
		}
		jobs = sched
	}

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
		health.Dependency{Name: "plans", Checker: health.CheckerFunc(func(ctx context.Context) error {
			plans, listErr := billingSvc.ListPlans(ctx)
			if listErr == nil && len(plans) == 0 {
				return errors.New("plan catalog is empty")
			}
			return listErr
		})},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Database:      db,
		Redis:         redis,
		Subscriptions: billingSvc,
		Jobs:          jobs,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := chainAuth(
		middleware.Authenticator(authSvc),
		middleware.PlanRateLimiter(redis.Client, middleware.DefaultPlanRates),
	)
	adminOnly := middleware.RequireAdmin

	billingHandler := billing.NewHandler(billingSvc, logger)
	usageHandler := usage.NewHandler(limiter)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)

		r.Post("/users", authHandler.Register)

		userHandler.RegisterRoutes(r, authenticator)
		billingHandler.RegisterRoutes(r, authenticator)
		usageHandler.RegisterRoutes(r, authenticator)
		workspace.NewHandler(workspaceSvc).RegisterRoutes(r, authenticator)
		task.NewHandler(taskSvc).RegisterRoutes(r, authenticator)
		friend.NewHandler(friendSvc).RegisterRoutes(r, authenticator)
		notification.NewHandler(notificationSvc).RegisterRoutes(r, authenticator)
		jarvis.NewHandler(jarvisSvc).RegisterRoutes(r, authenticator)

		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		billingHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		usageHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	if sched != nil {
		sched.Start()
		logger.Info("scheduler started",
			"token_cleanup", cfg.Scheduler.TokenCleanupSpec,
			"usage_cleanup", cfg.Scheduler.UsageCleanupSpec,
		)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	var runErr error
	select {
	case runErr = <-errChan:
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Error("scheduler shutdown error", "error", err)
		}
	}

	bus.Wait()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	closeAll(logger, db, redis)

	logger.Info("application stopped")
	return runErr
}

// chainAuth runs the plan rate limiter after authentication so the budget
// is picked from the verified plan claim.
func chainAuth(authenticate, limit func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return authenticate(limit(next))
	}
}
