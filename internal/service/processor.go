package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/validator"
	"go.uber.org/zap"
)

// ProcessMessage ingests a queued message holding one reading or an array of
// readings. Any failure fails the whole message; readings stored before the
// failure stay stored and are absorbed as duplicates on redelivery.
func (s *TelemetryService) ProcessMessage(ctx context.Context, body []byte) error {
	payloads, err := decodeReadings(body)
	if err != nil {
		return err
	}

	for i, p := range payloads {
		if err := s.Ingest(ctx, p); err != nil {
			return fmt.Errorf("failed to ingest reading %d of %d: %w", i+1, len(payloads), err)
		}
	}

	s.logger.Debug("message processed successfully", zap.Int("readings_count", len(payloads)))

	return nil
}

func decodeReadings(body []byte) ([]validator.ReadingPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty message", apperr.ErrInvalidInput)
	}

	if trimmed[0] == '[' {
		var payloads []validator.ReadingPayload
		if err := json.Unmarshal(trimmed, &payloads); err != nil {
			return nil, fmt.Errorf("%w: failed to unmarshal message: %v", apperr.ErrInvalidInput, err)
		}
		if len(payloads) == 0 {
			return nil, fmt.Errorf("%w: message holds no readings", apperr.ErrInvalidInput)
		}
		return payloads, nil
	}

	var payload validator.ReadingPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal message: %v", apperr.ErrInvalidInput, err)
	}
	return []validator.ReadingPayload{payload}, nil
}
