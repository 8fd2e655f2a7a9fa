// Command simulate seeds the product catalog and a user's devices, then sends
// a day of per-minute readings for every new device. Readings go to the
// ingest exchange when RABBITMQ_URL is set and to the HTTP ingest endpoint
// otherwise.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/septivank/energy-insights/internal/auth"
	"github.com/septivank/energy-insights/internal/config"
	"github.com/septivank/energy-insights/internal/db"
	"github.com/septivank/energy-insights/internal/logging"
	"github.com/septivank/energy-insights/internal/repository"
	"go.uber.org/zap"
)

func main() {
	userID := flag.Int64("user", 1, "Owner user id")
	numDevices := flag.Int("devices", 5, "Number of devices to create")
	hours := flag.Int("hours", 24, "Hours of readings per device, starting at midnight UTC")
	batchSize := flag.Int("batch", 60, "Readings per broker message")
	email := flag.String("email", "demo@example.com", "Email claim of the printed development token")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed development token")
	flag.Parse()

	config.LoadDotEnv()

	cfg, err := config.LoadSimulator()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, *userID, *numDevices, *hours, *batchSize); err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}

	if cfg.Auth.JWTSecret != "" {
		token, err := auth.IssueToken(auth.Principal{UserID: *userID, Email: *email}, cfg.Auth.JWTSecret, *tokenTTL)
		if err != nil {
			logger.Fatal("failed to issue token", zap.Error(err))
		}
		fmt.Printf("Bearer token for user %d:\n%s\n", *userID, token)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, userID int64, numDevices, hours, batchSize int) error {
	err := db.Initialize(ctx, logger, db.InitOptions{
		DatabaseURL: cfg.Database.URL,
		MaxRetries:  cfg.Database.InitMaxRetries,
		BaseDelay:   cfg.Database.InitBaseDelay,
	})
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	devices, err := seedDevices(ctx, repository.NewRepository(pool), logger, userID, numDevices)
	if err != nil {
		return err
	}

	send, closeSender, err := newSender(cfg, logger, batchSize)
	if err != nil {
		return err
	}
	defer closeSender()

	start := time.Now().UTC().Truncate(24 * time.Hour)
	end := start.Add(time.Duration(hours) * time.Hour)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, d := range devices {
		logger.Info("simulating device", zap.String("name", d.Name), zap.String("device_id", d.ID.String()))

		wg.Add(1)
		go func(d db.Device) {
			defer wg.Done()
			if err := send(ctx, readingsFor(d.ID, start, end)); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("device %s: %w", d.Name, err))
				mu.Unlock()
			}
		}(d)
	}
	wg.Wait()

	for _, err := range errs {
		logger.Error("device simulation failed", zap.Error(err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d devices failed", len(errs), len(devices))
	}

	logger.Info("telemetry ingestion complete", zap.Int("devices", len(devices)))
	return nil
}
