package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/autosales/internal/app"
	"github.com/odyssey-erp/autosales/internal/auth"
	"github.com/odyssey-erp/autosales/internal/customers"
	"github.com/odyssey-erp/autosales/internal/observability"
	"github.com/odyssey-erp/autosales/internal/platform/cache"
	"github.com/odyssey-erp/autosales/internal/platform/db"
	"github.com/odyssey-erp/autosales/internal/ratelimit"
	"github.com/odyssey-erp/autosales/internal/rbac"
	"github.com/odyssey-erp/autosales/internal/sales"
	"github.com/odyssey-erp/autosales/internal/vehicles"
	"github.com/odyssey-erp/autosales/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("autosales exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions())
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.PGMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	redisClient := cache.NewClient(cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Timeout:  cfg.RedisTimeout,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	policies, err := cfg.RatePolicies()
	if err != nil {
		return err
	}
	localCounter := ratelimit.NewMemoryCounter()
	counters := ratelimit.NewSupervisor(ratelimit.NewRedisCounter(redisClient), localCounter, ratelimit.SupervisorOptions{
		Timeout:       cfg.RedisTimeout,
		ProbeInterval: cfg.RateProbeInterval,
		Logger:        logger,
		Observer:      metrics,
	})
	counters.Init(ctx)
	limiter := ratelimit.NewLimiter(policies, counters,
		ratelimit.WithKeyPrefix(cfg.RateKeyPrefix),
		ratelimit.WithObserver(metrics),
	)

	verifier, err := auth.NewVerifier(cfg.TokenIssuers)
	if err != nil {
		return err
	}
	logger.Warn("bearer token signatures are not verified; deploy behind a gateway that validates them")

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	roleSets := cfg.RoleSets()
	rbacMiddleware := rbac.Middleware{Logger: logger}

	vehicleService := vehicles.NewService(vehicles.NewRepository(pool), nil)
	customerService := customers.NewService(customers.NewRepository(pool))
	saleService := sales.NewService(sales.NewRepository(pool), vehicleService, customerService, sales.ServiceConfig{
		ReservationHold: cfg.ReservationHold,
		Scheduler:       jobClient,
		Logger:          logger,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		RBAC:             rbacMiddleware,
		RateGate:         ratelimit.NewMiddleware(limiter, logger),
		Authn:            auth.NewMiddleware(verifier, logger),
		AuthHandler:      auth.NewHandler(logger, verifier),
		VehiclesHandler:  vehicles.NewHandler(logger, vehicleService, rbacMiddleware, roleSets),
		CustomersHandler: customers.NewHandler(logger, customerService, rbacMiddleware, roleSets),
		SalesHandler:     sales.NewHandler(logger, saleService, rbacMiddleware, roleSets),
		RateLimitHandler: ratelimit.NewHandler(limiter, logger),
		RolesHandler:     rbac.NewRolesHandler(roleSets),
		JobHandler:       jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	localCounter.StartJanitor(gctx)
	g.Go(func() error {
		return counters.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.Any("services", cfg.AppServices),
			slog.Bool("ratelimit_degraded", counters.Degraded()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
