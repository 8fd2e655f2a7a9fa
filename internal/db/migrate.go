package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// maxInitDelay caps the back-off between initialization attempts.
const maxInitDelay = 30 * time.Second

// InitOptions configures schema initialization
type InitOptions struct {
	DatabaseURL string
	MaxRetries  int
	BaseDelay   time.Duration
}

// RegisterInitializer runs Initialize when the application starts. Exhausting
// the retries fails startup.
func RegisterInitializer(lc fx.Lifecycle, logger *zap.Logger, opts InitOptions) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return Initialize(ctx, logger, opts)
		},
	})
}

// Initialize enables the timescaledb extension, creates the product, device
// and telemetry tables and turns telemetry into a hypertable. Every step is
// idempotent.
func Initialize(ctx context.Context, logger *zap.Logger, opts InitOptions) error {
	return initialize(ctx, logger, opts.MaxRetries, opts.BaseDelay, func() error {
		return migrateUp(opts.DatabaseURL)
	}, sleep)
}

func initialize(
	ctx context.Context,
	logger *zap.Logger,
	maxRetries int,
	baseDelay time.Duration,
	run func() error,
	wait func(context.Context, time.Duration) error,
) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 1; ; attempt++ {
		err := run()
		if err == nil {
			logger.Info("database init complete: extension ensured, tables created, hypertable ensured",
				zap.Int("attempt", attempt))
			return nil
		}

		if attempt >= maxRetries {
			logger.Error("database init failed", zap.Int("attempts", attempt), zap.Error(err))
			return fmt.Errorf("database init failed after %d attempts: %w", attempt, err)
		}

		delay := BackoffDelay(baseDelay, attempt)
		logger.Warn("database init attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return fmt.Errorf("database init aborted: %w", err)
		}
	}
}

// BackoffDelay returns base * 2^(attempt-1), capped at 30 seconds.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxInitDelay {
			return maxInitDelay
		}
	}
	if delay > maxInitDelay {
		return maxInitDelay
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func migrateUp(databaseURL string) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("migrate new: %w", err)
	}
	defer m.Close()

	return upRecovering(m, src)
}

// upRecovering applies pending migrations. A version left dirty by an
// interrupted run is rolled back to the migration before it, or to no
// version at all, and applied again. Every statement is idempotent.
func upRecovering(m *migrate.Migrate, src source.Driver) error {
	err := m.Up()
	var dirty migrate.ErrDirty
	if errors.As(err, &dirty) {
		prev, perr := previousVersion(src, dirty.Version)
		if perr != nil {
			return fmt.Errorf("migrate force: %w", perr)
		}
		if ferr := m.Force(prev); ferr != nil {
			return fmt.Errorf("migrate force: %w", ferr)
		}
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// previousVersion returns the migration applied before version, or
// database.NilVersion when version is the first one.
func previousVersion(src source.Driver, version int) (int, error) {
	prev, err := src.Prev(uint(version))
	if errors.Is(err, fs.ErrNotExist) {
		return database.NilVersion, nil
	}
	if err != nil {
		return 0, err
	}
	return int(prev), nil
}
