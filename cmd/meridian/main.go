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

	"github.com/meridian-bo/meridian/internal/app"
	"github.com/meridian-bo/meridian/internal/audit"
	"github.com/meridian-bo/meridian/internal/authz"
	"github.com/meridian-bo/meridian/internal/credential"
	"github.com/meridian-bo/meridian/internal/observability"
	"github.com/meridian-bo/meridian/internal/platform/cache"
	"github.com/meridian-bo/meridian/internal/platform/db"
	"github.com/meridian-bo/meridian/internal/rbac"
	"github.com/meridian-bo/meridian/internal/secret"
	"github.com/meridian-bo/meridian/internal/user"
	"github.com/meridian-bo/meridian/jobs"
)

func main() {
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	secrets := secret.NewStore(redisClient)
	tokens := credential.NewTokenCodec(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenTTL)

	mailClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := mailClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	rbacService := rbac.NewService(rbac.NewPgPermissionRepository(pool), rbac.NewPgMenuRepository(pool))
	userService := user.NewService(logger, user.NewPgRepository(pool), secrets, tokens, rbacService, mailClient)

	userHandler := user.NewHandler(logger, userService)
	rbacHandler := rbac.NewHandler(logger, rbacService)

	// Permission sync must complete before the router is exposed; a failure
	// here is fatal.
	registry := app.Registry(userHandler, rbacHandler)
	if err := rbacService.SyncDeclared(ctx, registry.Declared()); err != nil {
		logger.Error("sync permissions", slog.Any("error", err))
		os.Exit(1)
	}

	pipeline := authz.NewPipeline(logger, tokens, userService, rbacService, audit.NewPgRecorder(pool))

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		Pipeline:    pipeline,
		Metrics:     observability.NewMetrics(),
		UserHandler: userHandler,
		RBACHandler: rbacHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
