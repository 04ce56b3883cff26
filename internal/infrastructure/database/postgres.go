package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"cleaning-backend/pkg/logger"
)

// DBConfig holds everything needed to open the PostgreSQL pool.
type DBConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DBName   string
	SSLMode  string

	// Connection pool
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration

	// Retry
	MaxRetries     int
	RetryDelay     time.Duration
	ConnectTimeout time.Duration
}

// DSN returns the postgres URL for this configuration.
func (c *DBConfig) DSN() string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.DBName,
	}
	if c.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", c.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// PostgresDB wraps the connection pool and its lifecycle.
type PostgresDB struct {
	Pool   *pgxpool.Pool
	Config *DBConfig
}

func NewPostgresDB(config *DBConfig) *PostgresDB {
	return &PostgresDB{
		Config: config,
		Pool:   nil, // set by Connect
	}
}

func (db *PostgresDB) configurePool() (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(db.Config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// === POOL SIZE MANAGEMENT ===
	config.MaxConns = db.Config.MaxConns
	config.MinConns = db.Config.MinConns

	// === CONNECTION LIFECYCLE ===
	config.MaxConnLifetime = db.Config.MaxConnLifetime
	config.MaxConnIdleTime = db.Config.MaxConnIdleTime
	config.HealthCheckPeriod = db.Config.HealthCheckPeriod

	// === TIMEOUTS ===
	config.ConnConfig.ConnectTimeout = db.Config.ConnectTimeout

	return config, nil
}

// connectWithRetry opens the pool with exponential backoff, capped at MaxRetries.
func (db *PostgresDB) connectWithRetry(ctx context.Context, config *pgxpool.Config) (*pgxpool.Pool, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = db.Config.RetryDelay
	bo.MaxElapsedTime = 0

	retries := db.Config.MaxRetries - 1
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx)

	attempt := 0
	var pool *pgxpool.Pool
	operation := func() error {
		attempt++
		logger.Info("Connecting to PostgreSQL", map[string]interface{}{
			"attempt":     attempt,
			"max_retries": db.Config.MaxRetries,
		})

		connectCtx, cancel := context.WithTimeout(ctx, db.Config.ConnectTimeout)
		defer cancel()

		p, err := pgxpool.NewWithConfig(connectCtx, config)
		if err != nil {
			return err
		}
		if err := p.Ping(connectCtx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}

	notify := func(err error, delay time.Duration) {
		logger.Warn("PostgreSQL connection attempt failed", map[string]interface{}{
			"attempt":  attempt,
			"error":    err.Error(),
			"retry_in": delay.String(),
		})
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempt, err)
	}
	return pool, nil
}

// Connect configures the pool and connects with retry.
func (db *PostgresDB) Connect(ctx context.Context) error {
	config, err := db.configurePool()
	if err != nil {
		return fmt.Errorf("pool configuration failed: %w", err)
	}

	pool, err := db.connectWithRetry(ctx, config)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	db.Pool = pool
	logger.Info("PostgreSQL connection established", map[string]interface{}{
		"host": db.Config.Host,
		"db":   db.Config.DBName,
	})
	return nil
}

// HealthCheck pings the database and logs pool statistics.
func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Pool.Ping(healthCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	stats := db.Pool.Stat()
	if stats.TotalConns() == 0 {
		return fmt.Errorf("no active database connections")
	}

	logger.Debug(fmt.Sprintf("database health check passed total=%d idle=%d acquired=%d",
		stats.TotalConns(), stats.IdleConns(), stats.AcquiredConns()))
	return nil
}

// Close is safe to call more than once.
func (db *PostgresDB) Close() {
	if db.Pool == nil {
		return
	}
	logger.Info("Closing database connection pool", nil)
	db.Pool.Close()
	db.Pool = nil
}
