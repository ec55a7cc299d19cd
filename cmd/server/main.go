// Package main is the entry point for the watchdesk dashboard server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oremus-labs/watchdesk/config"
	"github.com/oremus-labs/watchdesk/internal/api"
	"github.com/oremus-labs/watchdesk/internal/dashboard"
	"github.com/oremus-labs/watchdesk/internal/graphqlapi"
	"github.com/oremus-labs/watchdesk/internal/handlers"
	"github.com/oremus-labs/watchdesk/internal/logutil"
	"github.com/oremus-labs/watchdesk/internal/metrics"
	"github.com/oremus-labs/watchdesk/internal/redisx"
	"github.com/oremus-labs/watchdesk/internal/remote"
	"github.com/oremus-labs/watchdesk/internal/revalidate"
	"github.com/oremus-labs/watchdesk/internal/store"
)

const (
	version         = "0.3.0"
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "watchdesk-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadDotEnv()
	cfg := config.Load()

	logger := logutil.Init(logutil.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logutil.Info("starting watchdesk server", map[string]interface{}{
		"version": version,
		"api_url": cfg.APIURL,
		"port":    cfg.ServerPort,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := remote.New(remote.Options{
		BaseURL: cfg.APIURL,
		Token:   cfg.APIToken,
		Timeout: cfg.RequestTimeout,
		Retry: remote.Policy{
			Attempts:     cfg.RetryAttempts,
			InitialDelay: cfg.RetryDelay,
			ShouldRetry:  remote.RetryFuncByName(cfg.RetryPolicy),
		},
		Logger:  logger.With("component", "remote"),
		Metrics: metrics.Remote{},
	})

	redisClient, err := redisx.Connect(rootCtx, redisx.Config{
		Addr:        cfg.RedisAddr,
		Username:    cfg.RedisUsername,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		TLSEnabled:  cfg.RedisTLSEnabled,
		TLSInsecure: cfg.RedisTLSInsecure,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info("revalidation relay enabled", "addr", cfg.RedisAddr, "channel", cfg.RevalidateChannel)
	} else {
		logger.Info("revalidation relay disabled (REDIS_ADDR not set)")
	}

	bus := revalidate.NewBus(revalidate.Options{
		Client:  redisClient,
		Logger:  logger.With("component", "revalidate"),
		Channel: cfg.RevalidateChannel,
	})
	defer bus.Close()

	activityStore, err := store.Open(cfg.DataStoreDSN, cfg.DataStoreDriver)
	if err != nil {
		return fmt.Errorf("open activity store: %w", err)
	}
	var (
		activityLog    handlers.ActivityLog
		activityReader graphqlapi.ActivityReader
	)
	if activityStore != nil {
		defer activityStore.Close()
		activityLog = activityStore
		activityReader = activityStore
		logger.Info("activity log enabled", "driver", cfg.DataStoreDriver)
	} else {
		logger.Info("activity log disabled", "driver", cfg.DataStoreDriver)
	}

	monitor := dashboard.NewMonitor(dashboard.MonitorOptions{
		Backend:   client,
		Publisher: bus,
		Interval:  cfg.HealthInterval,
		Logger:    logger.With("component", "health"),
	})
	go monitor.Run(rootCtx)

	graphqlHandler, err := graphqlapi.NewHandler(graphqlapi.Config{
		Backend:  client,
		Activity: activityReader,
	})
	if err != nil {
		return fmt.Errorf("build graphql schema: %w", err)
	}

	handler := handlers.New(client, bus, activityLog, handlers.Options{
		ActivityLimit: cfg.ActivityLimit,
		Logger:        logger.With("component", "handlers"),
	})
	server := api.NewServer(handler, api.Options{
		APIToken:       cfg.DashboardToken,
		GraphQLHandler: graphqlHandler,
		Logger:         logger,
	})
	if cfg.DashboardToken == "" {
		logger.Warn("DASHBOARD_API_TOKEN not set; mutating routes are unauthenticated")
	}

	srv, errCh := server.Start(":" + cfg.ServerPort)
	logger.Info("listening", "addr", srv.Addr)

	select {
	case <-rootCtx.Done():
		logger.Info("shutting down")
	case err, ok := <-errCh:
		if ok && err != nil {
			return err
		}
	}

	if err := api.Shutdown(srv, shutdownTimeout); err != nil {
		logutil.Error("graceful shutdown failed", err, map[string]interface{}{"timeout": shutdownTimeout})
		return err
	}
	logutil.Info("server stopped", nil)
	return nil
}
