package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	ServiceName  string
	LogLevel     string
	StartTimeout time.Duration
	StopTimeout  time.Duration
	HTTP         HTTPConfig
	Database     DatabaseConfig
	RabbitMQ     RabbitMQConfig
	Auth         AuthConfig
	Validation   ValidationConfig
	Query        QueryConfig
	Telemetry    TelemetryClientConfig
	LLM          LLMConfig
}

// HTTPConfig holds the listener settings
type HTTPConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address as ":PORT".
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", h.Port)
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
	// ReadOnlyURL points at a role without write grants. Generated queries
	// run there when it is set.
	ReadOnlyURL    string
	InitMaxRetries int
	InitBaseDelay  time.Duration
}

// RabbitMQConfig holds RabbitMQ connection and queue settings. An empty URL
// disables the ingest consumer and event publishing.
type RabbitMQConfig struct {
	URL              string
	IngestExchange   string
	IngestQueue      string
	IngestRoutingKey string
	WorkerExchange   string
	WorkerRoutingKey string
	DLQQueue         string
	PrefetchCount    int
}

// Enabled reports whether a broker is configured.
func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret    string
	JWTAlgorithm string
}

// ValidationConfig holds ingestion validation settings. A zero tolerance
// accepts readings of any age, so replays and backfills behave like fresh
// submissions.
type ValidationConfig struct {
	TimestampToleranceMinutes int
}

// QueryConfig bounds execution of generated SQL
type QueryConfig struct {
	Timeout time.Duration
	MaxRows int
}

// TelemetryClientConfig tells the assistant where the telemetry service lives
type TelemetryClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LLMConfig holds generation backend credentials. Keys are resolved into a
// single provider once at startup, see llm.Resolve.
type LLMConfig struct {
	GeminiAPIKey    string
	GroqAPIKey      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	Timeout         time.Duration
}

// LoadTelemetry loads configuration for the telemetry service
func LoadTelemetry() (*Config, error) {
	cfg := load("telemetry-service", 8002)

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is required but not set in environment variables")
	}

	return cfg, nil
}

// LoadAssistant loads configuration for the assistant service
func LoadAssistant() (*Config, error) {
	cfg := load("assistant-service", 8003)

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is required but not set in environment variables")
	}
	if cfg.Telemetry.BaseURL == "" {
		return nil, fmt.Errorf("TELEMETRY_SERVICE_URL must not be empty")
	}

	return cfg, nil
}

// LoadSimulator loads configuration for the seeding tool. JWT_SECRET_KEY is
// optional there and only used to print a development token.
func LoadSimulator() (*Config, error) {
	cfg := load("simulate", 0)

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}

	return cfg, nil
}

func load(serviceName string, defaultPort int) *Config {
	return &Config{
		ServiceName:  getEnv("SERVICE_NAME", serviceName),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		StartTimeout: getEnvAsDuration("START_TIMEOUT", 2*time.Minute),
		StopTimeout:  getEnvAsDuration("STOP_TIMEOUT", 30*time.Second),
		HTTP: HTTPConfig{
			Port:            getEnvAsInt("SERVICE_PORT", defaultPort),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 3*time.Minute),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			ReadOnlyURL:    getEnv("READONLY_DATABASE_URL", ""),
			InitMaxRetries: getEnvAsInt("DB_INIT_MAX_RETRIES", 3),
			InitBaseDelay:  getEnvAsDuration("DB_INIT_BASE_DELAY", 5*time.Second),
		},
		RabbitMQ: RabbitMQConfig{
			URL:              getEnv("RABBITMQ_URL", ""),
			IngestExchange:   getEnv("RABBITMQ_INGEST_EXCHANGE", "energy-insights.ingest.exchange"),
			IngestQueue:      getEnv("RABBITMQ_INGEST_QUEUE", "energy-insights.ingest.queue"),
			IngestRoutingKey: getEnv("RABBITMQ_INGEST_ROUTING_KEY", "telemetry.reading.raw"),
			WorkerExchange:   getEnv("RABBITMQ_WORKER_EXCHANGE", "energy-insights.telemetry.events.exchange"),
			WorkerRoutingKey: getEnv("RABBITMQ_WORKER_ROUTING_KEY", "telemetry.reading.ingested"),
			DLQQueue:         getEnv("RABBITMQ_DLQ_QUEUE", "energy-insights.ingest.dlq"),
			PrefetchCount:    getEnvAsInt("RABBITMQ_PREFETCH", 50),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET_KEY", ""),
			JWTAlgorithm: getEnv("JWT_ALGORITHM", "HS256"),
		},
		Validation: ValidationConfig{
			TimestampToleranceMinutes: getEnvAsInt("VALIDATION_TIMESTAMP_TOLERANCE_MINUTES", 0),
		},
		Query: QueryConfig{
			Timeout: getEnvAsDuration("QUERY_TIMEOUT", 30*time.Second),
			MaxRows: getEnvAsInt("QUERY_MAX_ROWS", 500),
		},
		Telemetry: TelemetryClientConfig{
			BaseURL: getEnv("TELEMETRY_SERVICE_URL", "http://localhost:8002/api/telemetry"),
			Timeout: getEnvAsDuration("TELEMETRY_TIMEOUT", 30*time.Second),
		},
		LLM: LLMConfig{
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
