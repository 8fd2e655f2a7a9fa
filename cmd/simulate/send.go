package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/septivank/energy-insights/internal/config"
	"github.com/septivank/energy-insights/internal/mq"
	"github.com/septivank/energy-insights/internal/validator"
	"go.uber.org/zap"
)

// sendFunc delivers all readings of one device
type sendFunc func(ctx context.Context, readings []validator.ReadingPayload) error

// newSender publishes batches to the ingest exchange when a broker is
// configured and posts single readings to the HTTP ingest endpoint otherwise
func newSender(cfg *config.Config, logger *zap.Logger, batchSize int) (sendFunc, func(), error) {
	if cfg.RabbitMQ.Enabled() {
		return newBrokerSender(cfg, logger, batchSize)
	}
	return newHTTPSender(cfg, logger), func() {}, nil
}

func newBrokerSender(cfg *config.Config, logger *zap.Logger, batchSize int) (sendFunc, func(), error) {
	conn, err := mq.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.IngestExchange, logger)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	if batchSize < 1 {
		batchSize = 1
	}

	var mu sync.Mutex
	send := func(ctx context.Context, readings []validator.ReadingPayload) error {
		for _, batch := range batches(readings, batchSize) {
			mu.Lock()
			err := publisher.Publish(ctx, cfg.RabbitMQ.IngestRoutingKey, batch)
			mu.Unlock()
			if err != nil {
				return err
			}
		}
		return nil
	}

	closeFn := func() {
		publisher.Close()
		conn.Close()
	}

	logger.Info("publishing readings to broker",
		zap.String("exchange", cfg.RabbitMQ.IngestExchange),
		zap.String("routing_key", cfg.RabbitMQ.IngestRoutingKey),
		zap.Int("batch", batchSize))

	return send, closeFn, nil
}

func newHTTPSender(cfg *config.Config, logger *zap.Logger) sendFunc {
	client := resty.New().
		SetBaseURL(cfg.Telemetry.BaseURL).
		SetTimeout(cfg.Telemetry.Timeout).
		SetHeader("Content-Type", "application/json")

	logger.Info("posting readings to HTTP ingest endpoint", zap.String("url", cfg.Telemetry.BaseURL))

	return func(ctx context.Context, readings []validator.ReadingPayload) error {
		failed := 0
		for _, r := range readings {
			if err := ctx.Err(); err != nil {
				return err
			}

			resp, err := client.R().SetContext(ctx).SetBody(r).Post("/")
			if err != nil {
				failed++
				logger.Warn("post failed", zap.String("device_id", r.DeviceID), zap.String("timestamp", r.Timestamp), zap.Error(err))
				continue
			}
			if resp.StatusCode() >= 300 {
				failed++
				logger.Warn("post rejected",
					zap.String("device_id", r.DeviceID),
					zap.String("timestamp", r.Timestamp),
					zap.Int("status", resp.StatusCode()),
					zap.String("body", resp.String()))
			}
		}

		if failed == len(readings) && failed > 0 {
			return fmt.Errorf("all %d readings were rejected", failed)
		}
		return nil
	}
}

// batches splits readings into consecutive slices of at most size elements
func batches(readings []validator.ReadingPayload, size int) [][]validator.ReadingPayload {
	var out [][]validator.ReadingPayload
	for start := 0; start < len(readings); start += size {
		end := start + size
		if end > len(readings) {
			end = len(readings)
		}
		out = append(out, readings[start:end])
	}
	return out
}
