// Package assistant answers natural-language questions about a user's
// energy use. It fetches the caller's device inventory, has the generation
// backend write one SELECT scoped to those devices, checks it, runs it on the
// telemetry service and has the backend phrase the answer.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/db"
	"github.com/septivank/energy-insights/internal/llm"
	"github.com/septivank/energy-insights/internal/query"
	"github.com/septivank/energy-insights/internal/sqlguard"
	"go.uber.org/zap"
)

// NoDevicesAnswer is returned, without calling the backend, to callers that
// own no devices.
const NoDevicesAnswer = "You don't have any devices registered yet, so there is no energy data to answer your question."

// Telemetry is the telemetry service as seen by the orchestrator. Every call
// runs as the caller identified by token.
type Telemetry interface {
	DevicesWithProduct(ctx context.Context, token string) ([]db.DeviceWithProduct, error)
	RunQuery(ctx context.Context, token, sql string) (*query.Result, error)
}

// Answer is the response to one question
type Answer struct {
	Answer   string        `json:"answer"`
	SQLQuery *string       `json:"sql_query"`
	Results  *query.Result `json:"results"`
}

// Orchestrator drives one question through the pipeline
type Orchestrator struct {
	telemetry Telemetry
	completer llm.Completer
	logger    *zap.Logger
}

// NewOrchestrator creates an orchestrator. A nil completer means no backend
// is configured and every question fails with apperr.ErrNotConfigured.
func NewOrchestrator(telemetry Telemetry, completer llm.Completer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		telemetry: telemetry,
		completer: completer,
		logger:    logger,
	}
}

// Answer runs the pipeline once. Any stage failing aborts the request; nothing
// is retried.
func (o *Orchestrator) Answer(ctx context.Context, token, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: user_query is required", apperr.ErrInvalidInput)
	}

	if o.completer == nil {
		return nil, fmt.Errorf("%w: no generation backend configured", apperr.ErrNotConfigured)
	}

	devices, err := o.telemetry.DevicesWithProduct(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return &Answer{Answer: NoDevicesAnswer}, nil
	}

	sql, err := o.generateSQL(ctx, question, devices)
	if err != nil {
		return nil, err
	}

	if err := sqlguard.Check(sql); err != nil {
		o.logger.Warn("generated query rejected", zap.String("sql", sql))
		return nil, err
	}

	result, err := o.telemetry.RunQuery(ctx, token, sql)
	if err != nil {
		return nil, err
	}

	prompt, err := answerPrompt(question, devices, sql, result)
	if err != nil {
		return nil, err
	}

	text, err := o.completer.Complete(ctx, llm.Request{User: prompt})
	if err != nil {
		return nil, err
	}

	return &Answer{
		Answer:   strings.TrimSpace(text),
		SQLQuery: &sql,
		Results:  result,
	}, nil
}

func (o *Orchestrator) generateSQL(ctx context.Context, question string, devices []db.DeviceWithProduct) (string, error) {
	system, err := sqlSystemPrompt(devices)
	if err != nil {
		return "", err
	}

	completion, err := o.completer.Complete(ctx, llm.Request{
		System: system,
		User:   question,
		JSON:   true,
	})
	if err != nil {
		return "", err
	}

	sql, err := extractQuery(completion)
	if err != nil {
		o.logger.Warn("malformed generation output", zap.Error(err))
		return "", err
	}

	o.logger.Debug("generated query", zap.String("sql", sql), zap.Int("devices", len(devices)))
	return sql, nil
}
