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

	"github.com/medportal/medportal/internal/app"
	jobmetrics "github.com/medportal/medportal/internal/jobs"
	"github.com/medportal/medportal/internal/observability"
	"github.com/medportal/medportal/internal/platform/db"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/jobs"
)

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
	if !cfg.AuditEnabled() {
		logger.Error("worker requires PG_DSN; the audit trail is its only workload")
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	cleanupJob := jobs.NewAuditCleanupJob(shared.NewAuditLogger(pool), logger, jobMetrics)

	cleanupTask, err := jobs.NewAuditCleanupTask(cfg.AuditRetention)
	if err != nil {
		logger.Error("build audit cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := cfg.Redis()
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuditCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AuditCron(), Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Method(http.MethodGet, "/metrics", metrics.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("audit cleanup scheduled", slog.String("cron", cfg.AuditCron()), slog.Duration("retention", cfg.AuditRetention))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
