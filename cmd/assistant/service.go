package main

import (
	"net/http"

	"github.com/septivank/energy-insights/internal/api"
	"github.com/septivank/energy-insights/internal/assistant"
	"github.com/septivank/energy-insights/internal/auth"
	"github.com/septivank/energy-insights/internal/config"
	"github.com/septivank/energy-insights/internal/llm"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ProvideCompleter resolves the generation backend. Without any provider key
// the service still starts and answers every question with 503.
func ProvideCompleter(cfg *config.Config, logger *zap.Logger) llm.Completer {
	sel, err := llm.Resolve(cfg.LLM)
	if err != nil {
		logger.Warn("no generation backend configured", zap.Error(err))
		return nil
	}

	logger.Info("generation backend selected", zap.Stringer("backend", sel))
	return llm.NewClient(sel, cfg.LLM.Timeout, logger)
}

// ProvideTelemetryClient creates the client for the telemetry service
func ProvideTelemetryClient(cfg *config.Config) *assistant.TelemetryClient {
	return assistant.NewTelemetryClient(cfg.Telemetry.BaseURL, cfg.Telemetry.Timeout)
}

// ProvideOrchestrator creates the question pipeline
func ProvideOrchestrator(client *assistant.TelemetryClient, completer llm.Completer, logger *zap.Logger) *assistant.Orchestrator {
	return assistant.NewOrchestrator(client, completer, logger)
}

// ProvideRouter builds the HTTP handler
func ProvideRouter(o *assistant.Orchestrator, cfg *config.Config, logger *zap.Logger) http.Handler {
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm)
	return api.NewAssistantRouter(api.NewAssistantHandler(o, logger), verifier, cfg.ServiceName, logger)
}

// ProvideServer creates the HTTP server
func ProvideServer(lc fx.Lifecycle, cfg *config.Config, handler http.Handler, logger *zap.Logger) *api.Server {
	return api.NewServer(lc, cfg.HTTP, handler, logger)
}
