package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/septivank/energy-insights/internal/api"
	"github.com/septivank/energy-insights/internal/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	if path, ok := config.LoadDotEnv(); ok {
		fmt.Printf("Loaded environment from: %s\n", path)
	} else {
		fmt.Println("No .env file found, using system environment variables (OK for pods/containers)")
	}

	cfg, err := config.LoadAssistant()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	app := fx.New(
		fx.Supply(cfg),
		fx.Supply(logger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(
			ProvideCompleter,
			ProvideTelemetryClient,
			ProvideOrchestrator,
			ProvideRouter,
			ProvideServer,
		),
		fx.Invoke(func(*api.Server) {}),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting application...", zap.Duration("timeout", cfg.StartTimeout))

	startCtx, startCancel := context.WithTimeout(context.Background(), cfg.StartTimeout)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		if startCtx.Err() == context.DeadlineExceeded {
			logger.Error("APPLICATION START TIMEOUT: the HTTP listener could not be opened. Check the errors above for the failing connection.",
				zap.Duration("timeout", cfg.StartTimeout))
		}
		logger.Fatal("failed to start application", zap.Error(err))
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.StopTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Error("error stopping app", zap.Error(err))
	}
}
