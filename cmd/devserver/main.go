package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/salessavvy-storefront/api/routes"
	"github.com/angelmondragon/salessavvy-storefront/internal/cron"
	"github.com/angelmondragon/salessavvy-storefront/internal/devserver"
	"github.com/angelmondragon/salessavvy-storefront/pkg/config"
	"github.com/angelmondragon/salessavvy-storefront/pkg/env"
	"github.com/angelmondragon/salessavvy-storefront/pkg/instance"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
	"github.com/angelmondragon/salessavvy-storefront/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "devserver"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "devserver",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	if cfg.App.IsProd() {
		logg.Error(context.Background(), "refusing to start", errors.New("the dev backend must not run with SALESSAVVY_APP_ENV=prod"))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var counter routes.Counter = devserver.NewMemoryCounter()
	var sweepLock cron.Lock = &cron.LocalLock{}
	if cfg.DevServer.UseRedis {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		counter = redisClient
		sweepLock, err = cron.NewRedisLock(redisClient, redisClient.LockKey("devserver-sweep"), 0)
		if err != nil {
			logg.Error(ctx, "failed to build sweep lock", err)
			os.Exit(1)
		}
	}

	svc := devserver.New(cfg.DevServer, devserver.WithLogger(logg))

	sweeper, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(cron.NewExpiryJob(svc, logg)),
		Lock:     sweepLock,
		Interval: cfg.DevServer.SweepInterval,
	})
	requireResource(ctx, logg, "sweeper", err)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "sweeper exited", err)
		}
	}()

	addr := ":" + env.Get("PORT", cfg.DevServer.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"redis":    cfg.DevServer.UseRedis,
	})
	logg.Info(ctx, "starting dev backend")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, svc, counter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "dev backend stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down dev backend")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "resource", resource), "failed to initialize resource", err)
	os.Exit(1)
}
