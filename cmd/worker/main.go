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

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/autosales/internal/app"
	"github.com/odyssey-erp/autosales/internal/customers"
	jobmetrics "github.com/odyssey-erp/autosales/internal/jobs"
	"github.com/odyssey-erp/autosales/internal/observability"
	"github.com/odyssey-erp/autosales/internal/platform/db"
	"github.com/odyssey-erp/autosales/internal/platform/httpx"
	"github.com/odyssey-erp/autosales/internal/sales"
	"github.com/odyssey-erp/autosales/internal/vehicles"
	"github.com/odyssey-erp/autosales/jobs"
)

const sweepBatch = 200

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions())
	if err != nil {
		return err
	}
	defer pool.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	metrics := observability.NewMetrics()

	vehicleService := vehicles.NewService(vehicles.NewRepository(pool), nil)
	customerService := customers.NewService(customers.NewRepository(pool))
	// Expiry never schedules follow-up tasks, so the worker runs without a scheduler.
	saleService := sales.NewService(sales.NewRepository(pool), vehicleService, customerService, sales.ServiceConfig{
		ReservationHold: cfg.ReservationHold,
		Logger:          logger,
	})

	expiryJob := jobs.NewReservationExpiryJob(saleService, logger, jobmetrics.NewMetrics(metrics.Registerer()))
	sweepTask, err := jobs.NewReservationSweepTask(sweepBatch)
	if err != nil {
		return err
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReservationExpire, Handler: expiryJob.HandleExpire},
			{Type: jobs.TaskReservationSweep, Handler: expiryJob.HandleSweep},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SweepSchedule, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(1), asynq.Unique(time.Minute)}},
		},
	})
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	server := &http.Server{Addr: cfg.WorkerAddr, Handler: r, ReadTimeout: cfg.AppReadTimeout}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("starting worker metrics server", slog.String("addr", cfg.WorkerAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
