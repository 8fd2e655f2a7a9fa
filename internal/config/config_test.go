package config

import (
	"testing"
	"time"
)

func TestLoadTelemetry_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "secret")

	if _, err := LoadTelemetry(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoadTelemetry_RequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/energy_monitor")
	t.Setenv("JWT_SECRET_KEY", "")

	if _, err := LoadTelemetry(); err == nil {
		t.Error("expected error when JWT_SECRET_KEY is missing")
	}
}

func TestLoadTelemetry_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/energy_monitor")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("VALIDATION_TIMESTAMP_TOLERANCE_MINUTES", "")

	cfg, err := LoadTelemetry()
	if err != nil {
		t.Fatalf("LoadTelemetry() error = %v", err)
	}

	if cfg.HTTP.Addr() != ":8002" {
		t.Errorf("Addr = %q, want :8002", cfg.HTTP.Addr())
	}
	if cfg.Database.InitMaxRetries != 3 {
		t.Errorf("InitMaxRetries = %d, want 3", cfg.Database.InitMaxRetries)
	}
	if cfg.Database.InitBaseDelay != 5*time.Second {
		t.Errorf("InitBaseDelay = %v, want 5s", cfg.Database.InitBaseDelay)
	}
	if cfg.Query.MaxRows != 500 {
		t.Errorf("MaxRows = %d, want 500", cfg.Query.MaxRows)
	}
	if cfg.RabbitMQ.Enabled() {
		t.Error("RabbitMQ should be disabled without RABBITMQ_URL")
	}
	if cfg.Validation.TimestampToleranceMinutes != 0 {
		t.Errorf("TimestampToleranceMinutes = %d, want 0 (disabled)", cfg.Validation.TimestampToleranceMinutes)
	}
	if cfg.Auth.JWTAlgorithm != "HS256" {
		t.Errorf("JWTAlgorithm = %q, want HS256", cfg.Auth.JWTAlgorithm)
	}
}

func TestLoadAssistant_ReadsProviderKeys(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("LLM_TIMEOUT", "45")

	cfg, err := LoadAssistant()
	if err != nil {
		t.Fatalf("LoadAssistant() error = %v", err)
	}

	if cfg.LLM.GroqAPIKey != "gsk-test" {
		t.Errorf("GroqAPIKey = %q", cfg.LLM.GroqAPIKey)
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Errorf("LLM timeout = %v, want 45s", cfg.LLM.Timeout)
	}
	if cfg.HTTP.Port != 8003 {
		t.Errorf("Port = %d, want 8003", cfg.HTTP.Port)
	}
}

func TestLoadSimulator_SecretOptional(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/energy_monitor")
	t.Setenv("JWT_SECRET_KEY", "")

	cfg, err := LoadSimulator()
	if err != nil {
		t.Fatalf("LoadSimulator() error = %v", err)
	}
	if cfg.Telemetry.BaseURL != "http://localhost:8002/api/telemetry" {
		t.Errorf("BaseURL = %q", cfg.Telemetry.BaseURL)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 7 * time.Second},
		{"250ms", 250 * time.Millisecond},
		{"2", 2 * time.Second},
		{"garbage", 7 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := getEnvAsDuration("TEST_DURATION", 7*time.Second); got != tt.want {
				t.Errorf("getEnvAsDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
