package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/leasedesk/leasedesk/internal/agreements"
	"github.com/leasedesk/leasedesk/internal/app"
	"github.com/leasedesk/leasedesk/internal/auth"
	"github.com/leasedesk/leasedesk/internal/customers"
	"github.com/leasedesk/leasedesk/internal/observability"
	"github.com/leasedesk/leasedesk/internal/properties"
	"github.com/leasedesk/leasedesk/internal/rbac"
	"github.com/leasedesk/leasedesk/internal/shared"
	"github.com/leasedesk/leasedesk/internal/societies"
	"github.com/leasedesk/leasedesk/internal/templates"
	"github.com/leasedesk/leasedesk/internal/users"
	"github.com/leasedesk/leasedesk/jobs"
	"github.com/leasedesk/leasedesk/pdf"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "leasedesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	rbacService := rbac.NewService(pool)
	guard := &rbac.Guard{Source: rbacService, Logger: logger, Metrics: metrics}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, guard, sessionManager, csrfManager)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, rbacService, guard)

	defaultTenantRole, err := rbacService.RoleIDByName(ctx, "Tenant")
	if err != nil {
		logger.Warn("tenant role lookup", slog.Any("error", err))
	}
	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo, rbacService, defaultTenantRole)
	customersHandler := customers.NewHandler(logger, customersService, guard)

	pdfClient := pdf.NewClient(cfg.GotenbergURL)
	if err := pdfClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg ping", slog.Any("error", err))
	}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	agreementsRepo := agreements.NewRepository(pool)
	agreementsService := agreements.NewService(agreementsRepo, pdfClient, jobs.NewNotifier(jobClient), shared.NewAuditLogger(pool), logger)
	agreementsHandler := agreements.NewHandler(logger, agreementsService, guard)

	societiesHandler := societies.NewHandler(logger, pool, guard)
	propertiesHandler := properties.NewHandler(logger, pool, guard)
	templatesHandler := templates.NewHandler(logger, pool, pdfClient, guard)
	rbacHandler := rbac.NewHandler(logger, rbacService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		AuthService:       authService,
		AuthHandler:       authHandler,
		UsersHandler:      usersHandler,
		CustomersHandler:  customersHandler,
		SocietiesHandler:  societiesHandler,
		PropertiesHandler: propertiesHandler,
		TemplatesHandler:  templatesHandler,
		AgreementsHandler: agreementsHandler,
		RBACHandler:       rbacHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
