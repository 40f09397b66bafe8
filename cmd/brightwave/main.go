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

	"github.com/redis/go-redis/v9"

	"github.com/brightwave-mkt/brightwave/internal/app"
	"github.com/brightwave-mkt/brightwave/internal/auth"
	"github.com/brightwave-mkt/brightwave/internal/campaigns"
	"github.com/brightwave-mkt/brightwave/internal/companies"
	"github.com/brightwave-mkt/brightwave/internal/observability"
	"github.com/brightwave-mkt/brightwave/internal/platform/db"
	"github.com/brightwave-mkt/brightwave/internal/rbac"
	"github.com/brightwave-mkt/brightwave/internal/roles"
	"github.com/brightwave-mkt/brightwave/internal/users"
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

	pool, err := db.New(ctx, cfg.PGDSN)
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

	metrics := observability.NewMetrics()

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, issuer)
	authMiddleware := auth.Middleware{Issuer: issuer, Service: authService, Logger: logger}
	authHandler := auth.NewHandler(logger, authService)

	catalogCache := rbac.NewCatalogCache(redisClient, cfg.CatalogCacheTTL)
	rbacStore := rbac.NewStore(pool)
	rbacService := rbac.NewService(rbacStore, catalogCache)
	rbacMiddleware := rbac.Middleware{Checker: rbacService, Logger: logger, Metrics: metrics}
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	rolesHandler := roles.NewHandler(logger, rbacService, rbacMiddleware)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, rbacService, rbacMiddleware)

	companiesRepo := companies.NewRepository(pool)
	companiesHandler := companies.NewHandler(logger, companiesRepo, rbacMiddleware)

	campaignsRepo := campaigns.NewRepository(pool)
	campaignsHandler := campaigns.NewHandler(logger, campaignsRepo, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthMiddleware:   authMiddleware,
		AuthHandler:      authHandler,
		RBACMiddleware:   rbacMiddleware,
		RBACHandler:      rbacHandler,
		RolesHandler:     rolesHandler,
		UsersHandler:     usersHandler,
		CompaniesHandler: companiesHandler,
		CampaignsHandler: campaignsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
