package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
)

// connectTimeout bounds pool creation and the initial ping
const connectTimeout = 10 * time.Second

// DB owns the PostgreSQL pool backing Repository
type DB struct {
	Pool *pgxpool.Pool
}

// connString renders cfg as a postgres URL so credentials are escaped
func connString(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.DBName,
	}

	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// New opens the pool and verifies it with a ping. Queries slower than
// cfg.SlowQuery, and failed queries, are logged through logger.
func New(cfg config.DatabaseConfig, logger *logging.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.Tracer = &queryTracer{logger: logging.OrNop(logger), slow: cfg.SlowQuery}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Migrate creates the tables the repository needs if they are missing
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close releases every pooled connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health pings the database
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

type queryStartKey struct{}

type queryStart struct {
	sql string
	at  time.Time
}

// queryTracer implements pgx.QueryTracer
type queryTracer struct {
	logger *logging.Logger
	slow   time.Duration
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, at: time.Now()})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}

	elapsed := time.Since(start.at)
	failed := data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows)
	if !failed && (t.slow <= 0 || elapsed < t.slow) {
		return
	}

	var err error
	if failed {
		err = data.Err
	}
	t.logger.LogDatabaseOperation(operation(start.sql), elapsed, err)
}

// operation names a statement by its leading keyword and table
func operation(sql string) string {
	fields := strings.Fields(sql)
	switch {
	case len(fields) == 0:
		return "unknown"
	case len(fields) >= 3 && strings.EqualFold(fields[0], "INSERT"):
		return "insert " + fields[2]
	case len(fields) >= 2 && strings.EqualFold(fields[0], "UPDATE"):
		return "update " + fields[1]
	default:
		for i, f := range fields {
			if strings.EqualFold(f, "FROM") && i+1 < len(fields) {
				return strings.ToLower(fields[0]) + " " + fields[i+1]
			}
		}
		return strings.ToLower(fields[0])
	}
}
