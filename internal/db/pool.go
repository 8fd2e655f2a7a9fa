package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Pool is an alias for pgxpool.Pool
type Pool = pgxpool.Pool

// QueryPool is the pool generated SQL runs on. It is either a dedicated pool
// for a read-only role or the main pool.
type QueryPool struct {
	*pgxpool.Pool
	Dedicated bool
}

// NewPool creates a new PostgreSQL connection pool
func NewPool(lc fx.Lifecycle, logger *zap.Logger, databaseURL string) (*pgxpool.Pool, error) {
	logger.Info("initializing database connection pool")

	pool, err := open(databaseURL)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("attempting to connect to database...")
			if err := pool.Ping(ctx); err != nil {
				logger.Error("database ping failed", zap.Error(err), zap.String("url", MaskPassword(databaseURL)))
				return fmt.Errorf("[DATABASE CONNECTION FAILED] cannot reach database. Please check: 1) Database is running, 2) DATABASE_URL is correct, 3) Network/firewall allows connection. Error: %w", err)
			}
			logger.Info("database connection established successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pool.Close()
			logger.Info("database connection closed")
			return nil
		},
	})

	return pool, nil
}

// NewQueryPool opens a pool for readOnlyURL, or reuses main when it is empty.
func NewQueryPool(lc fx.Lifecycle, logger *zap.Logger, main *pgxpool.Pool, readOnlyURL string) (*QueryPool, error) {
	if readOnlyURL == "" {
		logger.Warn("READONLY_DATABASE_URL not set, generated queries share the read-write pool")
		return &QueryPool{Pool: main}, nil
	}

	pool, err := open(readOnlyURL)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				logger.Error("read-only database ping failed", zap.Error(err), zap.String("url", MaskPassword(readOnlyURL)))
				return fmt.Errorf("[DATABASE CONNECTION FAILED] cannot reach read-only database: %w", err)
			}
			logger.Info("read-only query pool established")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pool.Close()
			return nil
		},
	})

	return &QueryPool{Pool: pool, Dedicated: true}, nil
}

// Connect opens a pool and pings it. Short-lived tools close it themselves.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := open(databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("[DATABASE CONNECTION FAILED] cannot reach database: %w", err)
	}
	return pool, nil
}

func open(databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to create connection pool: %w", err)
	}
	return pool, nil
}

// MaskPassword masks the password in database URL for logging
func MaskPassword(url string) string {
	if len(url) == 0 {
		return "<empty>"
	}
	// Simple masking - find password part between : and @
	start := 0
	for i := 0; i < len(url); i++ {
		if url[i] == ':' && i > 0 && url[i-1] != '/' {
			start = i + 1
		}
		if url[i] == '@' && start > 0 {
			return url[:start] + "***" + url[i:]
		}
	}
	return url
}
