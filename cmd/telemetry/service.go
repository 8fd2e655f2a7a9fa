package main

import (
	"net/http"

	"github.com/septivank/energy-insights/internal/api"
	"github.com/septivank/energy-insights/internal/auth"
	"github.com/septivank/energy-insights/internal/config"
	"github.com/septivank/energy-insights/internal/db"
	"github.com/septivank/energy-insights/internal/mq"
	"github.com/septivank/energy-insights/internal/query"
	"github.com/septivank/energy-insights/internal/repository"
	"github.com/septivank/energy-insights/internal/service"
	"github.com/septivank/energy-insights/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// registerSchemaInitializer is invoked before anything pings the pool, so the
// schema exists by the time the server accepts requests
func registerSchemaInitializer(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) {
	db.RegisterInitializer(lc, logger, db.InitOptions{
		DatabaseURL: cfg.Database.URL,
		MaxRetries:  cfg.Database.InitMaxRetries,
		BaseDelay:   cfg.Database.InitBaseDelay,
	})
}

// startConsumer consumes raw readings from the ingest queue when a broker is
// configured
func startConsumer(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	svc *service.TelemetryService,
) error {
	if conn == nil {
		logger.Info("RABBITMQ_URL not set, ingest consumer disabled")
		return nil
	}

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:    conn,
		Queue:         cfg.RabbitMQ.IngestQueue,
		DLQQueue:      cfg.RabbitMQ.DLQQueue,
		Exchange:      cfg.RabbitMQ.IngestExchange,
		RoutingKey:    cfg.RabbitMQ.IngestRoutingKey,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Logger:        logger,
		Handler:       svc.ProcessMessage,
	})
	if err != nil {
		return err
	}

	logger.Info("ingest consumer configured",
		zap.String("queue", cfg.RabbitMQ.IngestQueue),
		zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))

	consumer.RegisterLifecycle(lc)
	return nil
}

// ProvideDBPool creates the read-write database pool
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideQueryPool creates the pool generated SQL runs on
func ProvideQueryPool(lc fx.Lifecycle, logger *zap.Logger, pool *db.Pool, cfg *config.Config) (*db.QueryPool, error) {
	return db.NewQueryPool(lc, logger, pool, cfg.Database.ReadOnlyURL)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideExecutor creates the scoped query executor
func ProvideExecutor(pool *db.QueryPool, cfg *config.Config, logger *zap.Logger) *query.Executor {
	return query.NewExecutor(pool, cfg.Query.Timeout, cfg.Query.MaxRows, logger)
}

// ProvideValidator creates a new validator instance
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Validation.TimestampToleranceMinutes)
}

// ProvideMQConnection connects to RabbitMQ. It returns nil when no broker is
// configured.
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	if !cfg.RabbitMQ.Enabled() {
		return nil, nil
	}
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the event publisher, or nil without a broker
func ProvidePublisher(lc fx.Lifecycle, conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	if conn == nil {
		return nil, nil
	}

	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.WorkerExchange, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.StopHook(publisher.Close))
	return publisher, nil
}

// ProvideTelemetryService creates the telemetry service
func ProvideTelemetryService(
	repo *repository.Repository,
	executor *query.Executor,
	publisher *mq.Publisher,
	v *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *service.TelemetryService {
	var events service.EventPublisher
	if publisher != nil {
		events = publisher
	}
	return service.NewTelemetryService(repo, executor, events, v, cfg.RabbitMQ.WorkerRoutingKey, logger)
}

// ProvideRouter builds the HTTP handler
func ProvideRouter(svc *service.TelemetryService, pool *db.Pool, cfg *config.Config, logger *zap.Logger) http.Handler {
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm)
	return api.NewTelemetryRouter(api.NewTelemetryHandler(svc, logger), verifier, cfg.ServiceName, logger, pool)
}

// ProvideServer creates the HTTP server
func ProvideServer(lc fx.Lifecycle, cfg *config.Config, handler http.Handler, logger *zap.Logger) *api.Server {
	return api.NewServer(lc, cfg.HTTP, handler, logger)
}
