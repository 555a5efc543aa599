package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/cache"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/database"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/metrics"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/middleware"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/platform"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/queue"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/quota"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/storage"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/tracing"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/upload"
	"go.uber.org/multierr"
)

// rateLimiterIdle is how long an idle client keeps its token bucket
const rateLimiterIdle = 10 * time.Minute

// API holds the services behind the HTTP surface
type API struct {
	uploads     *upload.Service
	platforms   *platform.Registry
	auth        *middleware.Authenticator
	health      func(ctx context.Context) error
	maxBodySize int64
	logger      *logging.Logger
}

func main() {
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

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	repo := database.NewRepository(db)

	files, err := storage.NewFileStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	q, err := queue.New(cfg.Queue, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}

	var (
		gateOpts   []quota.Option
		uploadOpts []upload.Option
		redis      *cache.Cache
	)
	if cfg.Redis.Enabled {
		redis, err = cache.New(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.WarnWithErr("Redis unavailable, continuing without cache", err)
		} else {
			gateOpts = append(gateOpts, quota.WithCache(redis, time.Minute))
			uploadOpts = append(uploadOpts, upload.WithCache(redis, cfg.Redis.VideoTTL))
		}
	}

	gate := quota.NewGate(repo, logger, gateOpts...)
	registry := platform.NewDefaultRegistry(cfg.Platforms, platform.Deps{
		Store:       repo,
		Files:       files,
		Logger:      logger,
		StateSecret: []byte(cfg.Auth.JWTSecret),
	})
	api := &API{
		uploads:     upload.NewService(repo, gate, files, q, cfg.Upload, logger, uploadOpts...),
		platforms:   registry,
		auth:        middleware.NewAuthenticator(cfg.Auth),
		health:      db.Health,
		maxBodySize: cfg.Upload.MaxFileSize,
		logger:      logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	go limiter.Cleanup(ctx, time.Minute, rateLimiterIdle)

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

	router := setupRouter(api, cfg.Server, limiter)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	if metricsServer != nil {
		err = multierr.Append(err, metricsServer.Shutdown(shutdownCtx))
	}
	err = multierr.Append(err, q.Close())
	if redis != nil {
		err = multierr.Append(err, redis.Close())
	}
	err = multierr.Append(err, tracer.Close())
	if err != nil {
		logger.ErrorWithErr("Shutdown finished with errors", err)
	}

	logger.Info("Server exited")
}

func setupRouter(api *API, cfg config.ServerConfig, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.Logger(api.logger),
	)

	router.GET("/health", api.healthCheck)

	// The platform redirects here without our bearer token; state identifies the user.
	router.GET("/api/platforms/:platform/callback", api.platformCallback)

	v1 := router.Group("/api")
	v1.Use(api.auth.Middleware(), middleware.RateLimit(limiter))
	{
		v1.POST("/videos/upload", api.uploadVideo)
		v1.GET("/videos/quota", api.getQuota)
		v1.GET("/videos/requirements", api.getRequirements)
		v1.GET("/videos", api.listVideos)
		v1.GET("/videos/:id", api.getVideo)
		v1.DELETE("/videos/:id", api.deleteVideo)

		v1.GET("/platforms", api.listPlatforms)
		v1.GET("/platforms/:platform/auth-url", api.getAuthURL)
		v1.DELETE("/platforms/:platform", api.disconnectPlatform)
	}

	return router
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	if api.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := api.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}
