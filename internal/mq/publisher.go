package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher handles message publishing to RabbitMQ. A nil *Publisher is
// valid and publishes nothing, which is how a service runs without a broker.
type Publisher struct {
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher on a durable topic exchange
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// ReadingIngestedEvent is published after a new reading is committed
type ReadingIngestedEvent struct {
	DeviceID    string  `json:"device_id"`
	Timestamp   string  `json:"timestamp"`
	EnergyWatts float64 `json:"energy_watts"`
}

// Publish marshals v as JSON and publishes it as a persistent message with a
// fresh message id
func (p *Publisher) Publish(ctx context.Context, routingKey string, v any) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// PublishReadingIngested publishes a reading.ingested event
func (p *Publisher) PublishReadingIngested(ctx context.Context, event ReadingIngestedEvent, routingKey string) error {
	if p == nil {
		return nil
	}

	if err := p.Publish(ctx, routingKey, event); err != nil {
		return err
	}

	p.logger.Debug("published reading ingested event",
		zap.String("routing_key", routingKey),
		zap.String("device_id", event.DeviceID),
		zap.String("timestamp", event.Timestamp),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p != nil && p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
