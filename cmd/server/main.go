package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Simplici0/smeta/internal/cache"
	"github.com/Simplici0/smeta/internal/catalog"
	"github.com/Simplici0/smeta/internal/config"
	"github.com/Simplici0/smeta/internal/db"
	"github.com/Simplici0/smeta/internal/estimates"
	"github.com/Simplici0/smeta/internal/httpapi"
	"github.com/Simplici0/smeta/internal/logger"
	"github.com/Simplici0/smeta/internal/migrations"
	"github.com/Simplici0/smeta/internal/seed"
	"github.com/Simplici0/smeta/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logr.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logr *zap.Logger) error {
	database, err := db.Open(ctx, cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database, logr.Named("migrations")); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}
	logr.Info("migrations applied", zap.String("db", cfg.DB.Path))

	searchCache, closeCache, err := newCache(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer closeCache()

	var metrics *httpapi.Metrics
	var opts []estimates.Option
	if cfg.Metrics.Enabled {
		metrics = httpapi.NewMetrics()
		opts = append(opts, estimates.WithPricedCounter(metrics.EstimatesPriced))
	}

	materials := catalog.NewService(store.Materials(database), searchCache, logr.Named("catalog"))
	ests := estimates.NewService(store.Estimates(database), materials, searchCache, logr.Named("estimates"), opts...)

	if cfg.Seed.Catalog {
		stats, err := seed.Run(ctx, materials)
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		logr.Info("catalog seeded", zap.Int("inserts", stats.Inserts), zap.Int("skipped", stats.Skipped))
	}

	api := httpapi.New(ests, materials, metrics, logr.Named("http"))
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("graceful shutdown complete")
	return nil
}

// searchCache is what both services need from the cache.
type searchCache interface {
	estimates.Cache
	catalog.Invalidator
}

func newCache(ctx context.Context, cfg config.Config, logr *zap.Logger) (searchCache, func(), error) {
	if cfg.Redis.Addr == "" {
		logr.Info("redis not configured, search cache disabled")
		return cache.Nop{}, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}
	logr.Info("redis connected", zap.String("addr", cfg.Redis.Addr))

	return cache.New(rdb, "smeta:", cfg.Cache.TTL, logr.Named("cache")), func() { _ = rdb.Close() }, nil
}
