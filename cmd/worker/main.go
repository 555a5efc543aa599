package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/therealutkarshpriyadarshi/multiuploader/internal/cache"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/database"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/dispatch"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/metrics"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/monitoring"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/platform"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/queue"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/reconcile"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/storage"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/tracing"
	"go.uber.org/multierr"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	tracer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracer: %v", err)
	}

	// Initialize database
	db, err := database.New(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Initialize storage
	files, err := storage.NewFileStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize queue
	q, err := queue.New(cfg.Queue, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}

	workerOpts := []dispatch.Option{dispatch.WithPlatformTimeout(cfg.Worker.PlatformTimeout)}
	var (
		redis  *cache.Cache
		locker reconcile.Locker
		stats  monitoring.StatsProvider
	)
	if cfg.Redis.Enabled {
		redis, err = cache.New(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.WarnWithErr("Redis unavailable, continuing without cache", err)
		} else {
			workerOpts = append(workerOpts, dispatch.WithCache(redis))
			locker = redis
			stats = redis
		}
	}

	registry := platform.NewDefaultRegistry(cfg.Platforms, platform.Deps{
		Store:  repo,
		Files:  files,
		Logger: logger,
	})
	worker := dispatch.NewWorker(repo, registry, logger, workerOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		checks := []metrics.Check{
			{Name: "postgres", Probe: db.Health},
			{Name: "rabbitmq", Probe: q.Health},
		}
		if redis != nil {
			checks = append(checks, metrics.Check{Name: "redis", Probe: redis.Health})
		}
		metricsServer = metrics.NewServer(cfg.Metrics.Port, logger, checks...)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
	}

	go monitoring.NewMonitor(q, stats, 15*time.Second, logger).Run(ctx)

	sweeper := reconcile.NewSweeper(repo, q, locker, reconcile.Config{
		Interval: cfg.Worker.ReconcileInterval,
		StaleAge: cfg.Worker.ReconcileAfter,
	}, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatalf("Failed to start reconciliation sweeper: %v", err)
	}

	logger.Infof("Worker started with concurrency %d, waiting for jobs...", cfg.Worker.Concurrency)
	if err := q.Consume(ctx, cfg.Worker.Concurrency, worker.Handle); err != nil {
		logger.ErrorWithErr("Failed to consume jobs", err)
		stop()
	}

	<-ctx.Done()
	logger.Info("Shutting down worker gracefully...")
	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = q.Close()
	if metricsServer != nil {
		err = multierr.Append(err, metricsServer.Shutdown(shutdownCtx))
	}
	if redis != nil {
		err = multierr.Append(err, redis.Close())
	}
	err = multierr.Append(err, tracer.Close())
	if err != nil {
		logger.ErrorWithErr("Shutdown finished with errors", err)
	}

	logger.Info("Worker stopped")
}
