package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Queue     QueueConfig
	Worker    WorkerConfig
	Upload    UploadConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	Tracing   TracingConfig
	Platforms PlatformsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	CORSOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	MaxConns  int
	MinConns  int
	SlowQuery time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	VideoTTL time.Duration
}

// Addr returns host:port for the Redis client
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StorageConfig holds file storage configuration
type StorageConfig struct {
	Driver          string // minio, local
	LocalDir        string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	Vhost      string
	MaxRetries int
	RetryDelay time.Duration
}

// WorkerConfig holds dispatch worker configuration
type WorkerConfig struct {
	Concurrency       int
	PlatformTimeout   time.Duration
	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration
}

// UploadConfig holds intake validation limits
type UploadConfig struct {
	MaxFileSize       int64
	MinFileSize       int64
	AllowedExtensions []string
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string // when set, tokens must carry a matching iss claim
}

// LoggingConfig mirrors logging.Config
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// MetricsConfig holds Prometheus exporter settings
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds Jaeger settings
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRate  float64 // fraction of traces kept; 0 or >= 1 keeps all
}

// PlatformsConfig holds OAuth application credentials per platform
type PlatformsConfig struct {
	YouTube   OAuthAppConfig
	TikTok    OAuthAppConfig
	Instagram OAuthAppConfig
	Facebook  OAuthAppConfig
}

// OAuthAppConfig holds one platform's OAuth application settings.
// APIBaseURL and AuthBaseURL override the production endpoints.
type OAuthAppConfig struct {
	ClientID          string
	ClientSecret      string
	RedirectURI       string
	APIBaseURL        string
	AuthBaseURL       string
	RequestsPerSecond float64
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("worker.concurrency must be at least 1, got %d", c.Worker.Concurrency)
	}
	if c.Storage.Driver != "minio" && c.Storage.Driver != "local" {
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Upload.MaxFileSize <= c.Upload.MinFileSize {
		return fmt.Errorf("upload.maxFileSize must exceed upload.minFileSize")
	}
	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8001)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "60s")
	viper.SetDefault("server.writeTimeout", "60s")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("server.rateLimitRPS", 10)
	viper.SetDefault("server.rateLimitBurst", 20)
	viper.SetDefault("server.corsOrigins", []string{"http://localhost:3000"})

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "multiuploader")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)
	viper.SetDefault("database.slowQuery", "200ms")

	// Redis defaults
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.videoTTL", "30s")

	// Storage defaults
	viper.SetDefault("storage.driver", "minio")
	viper.SetDefault("storage.localDir", "./uploads")
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "uploads")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")
	viper.SetDefault("queue.maxRetries", 5)
	viper.SetDefault("queue.retryDelay", "1m")

	// Worker defaults
	viper.SetDefault("worker.concurrency", 3)
	viper.SetDefault("worker.platformTimeout", "10m")
	viper.SetDefault("worker.reconcileInterval", "5m")
	viper.SetDefault("worker.reconcileAfter", "15m")

	// Upload defaults
	viper.SetDefault("upload.maxFileSize", 500*1024*1024) // 500MB
	viper.SetDefault("upload.minFileSize", 1024)
	viper.SetDefault("upload.allowedExtensions", []string{".mp4", ".mov", ".avi", ".webm"})

	viper.SetDefault("auth.jwtSecret", "change-me")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "multiuploader")
	viper.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")
	viper.SetDefault("tracing.sampleRate", 1.0)

	// Platform defaults
	viper.SetDefault("platforms.youtube.redirectURI", "http://localhost:8001/api/platforms/youtube_shorts/callback")
	viper.SetDefault("platforms.youtube.requestsPerSecond", 5)
	viper.SetDefault("platforms.tiktok.redirectURI", "http://localhost:8001/api/platforms/tiktok/callback")
	viper.SetDefault("platforms.tiktok.requestsPerSecond", 5)
	viper.SetDefault("platforms.instagram.redirectURI", "http://localhost:8001/api/platforms/instagram_reels/callback")
	viper.SetDefault("platforms.facebook.redirectURI", "http://localhost:8001/api/platforms/facebook_reels/callback")
}
