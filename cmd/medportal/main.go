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

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medportal/medportal/internal/api"
	"github.com/medportal/medportal/internal/app"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/dashboard"
	"github.com/medportal/medportal/internal/files"
	"github.com/medportal/medportal/internal/observability"
	"github.com/medportal/medportal/internal/patients"
	"github.com/medportal/medportal/internal/platform/cache"
	"github.com/medportal/medportal/internal/platform/db"
	"github.com/medportal/medportal/internal/profile"
	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/roles"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/internal/users"
	"github.com/medportal/medportal/internal/view"
)

// uploadFanOut bounds concurrent forwards to the file service per request.
const uploadFanOut = 3

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
	health := map[string]app.HealthCheck{}

	var pool *pgxpool.Pool
	if cfg.AuditEnabled() {
		pool, err = db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		health["postgres"] = pool.Ping
	} else {
		logger.Info("PG_DSN not set, audit trail disabled")
	}
	var auditLogger *shared.AuditLogger
	if pool != nil {
		auditLogger = shared.NewAuditLogger(pool)
	}

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	health["redis"] = func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}

	sessionManager := shared.NewSessionManager(redisClient, "medportal_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	engine, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	render := view.NewRenderer(engine, csrfManager, logger)
	guard := rbac.Guard{Render: render, Logger: logger}

	credentials := auth.NewSessionCredentials(sessionManager, auditLogger, logger)
	gateway := backend.NewClient(cfg.APIBaseURL, cfg.UpstreamTimeout, credentials,
		backend.WithObserver(metrics),
		backend.WithLogger(logger),
	)

	aggregator := rbac.NewAggregator(gateway,
		rbac.WithRoleCache(cfg.PermissionCacheSize, cfg.PermissionCacheTTL),
		rbac.WithFanOut(cfg.PermissionFanOut),
		rbac.WithAggregatorLogger(logger),
		rbac.WithPartialHook(metrics.ObservePartialPermissions),
	)

	authService := auth.NewService(gateway, sessionManager, auditLogger, logger)
	authHandler := auth.NewHandler(logger, authService, render)
	dashboardHandler := dashboard.NewHandler(logger, aggregator, render, guard)

	usersService := users.NewService(gateway, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, render, guard)

	rbacService := rbac.NewService(gateway, aggregator, auditLogger, logger)
	permissionsHandler := rbac.NewPermissionsHandler(logger, rbacService, render, guard)

	rolesService := roles.NewService(gateway, aggregator, auditLogger, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, render, guard)

	profileService := profile.NewService(gateway, authService, logger)
	profileHandler := profile.NewHandler(logger, profileService, render, guard)

	patientsService := patients.NewService(gateway, auditLogger, logger)
	patientsHandler := patients.NewHandler(logger, patientsService, render, guard)

	filesService := files.NewService(gateway, auditLogger, logger, uploadFanOut)
	filesHandler := files.NewHandler(logger, filesService, render, guard, cfg.UploadMaxBytes)

	apiHandler := api.NewHandler(logger, aggregator, guard)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Metrics:            metrics,
		Health:             health,
		AuthHandler:        authHandler,
		DashboardHandler:   dashboardHandler,
		UsersHandler:       usersHandler,
		PermissionsHandler: permissionsHandler,
		RolesHandler:       rolesHandler,
		ProfileHandler:     profileHandler,
		PatientsHandler:    patientsHandler,
		FilesHandler:       filesHandler,
		APIHandler:         apiHandler,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
