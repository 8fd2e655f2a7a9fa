package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/db"
	"github.com/septivank/energy-insights/internal/energy"
	"github.com/septivank/energy-insights/internal/mq"
	"github.com/septivank/energy-insights/internal/query"
	"github.com/septivank/energy-insights/internal/sqlguard"
	"github.com/septivank/energy-insights/internal/validator"
	"go.uber.org/zap"
)

// Store is the slice of the repository the telemetry service needs
type Store interface {
	InsertReading(ctx context.Context, reading db.Reading) (bool, error)
	ListDevices(ctx context.Context, ownerID int64) ([]db.Device, error)
	ListDevicesWithProduct(ctx context.Context, ownerID int64) ([]db.DeviceWithProduct, error)
	DeviceOwnedBy(ctx context.Context, deviceID uuid.UUID, ownerID int64) (bool, error)
	DeviceWindowStats(ctx context.Context, ownerID int64, start, end time.Time, deviceID *uuid.UUID) ([]db.DeviceWindowStats, error)
	BucketedSeries(ctx context.Context, deviceID uuid.UUID, start, end time.Time, interval string) ([]db.TelemetryBucket, error)
}

// QueryRunner executes validated SQL text
type QueryRunner interface {
	Execute(ctx context.Context, sql string) (*query.Result, error)
}

// EventPublisher announces committed readings
type EventPublisher interface {
	PublishReadingIngested(ctx context.Context, event mq.ReadingIngestedEvent, routingKey string) error
}

// TelemetryService implements ingestion, aggregation and scoped query
// execution on top of the time-series store
type TelemetryService struct {
	store      Store
	executor   QueryRunner
	publisher  EventPublisher
	validator  *validator.Validator
	routingKey string
	logger     *zap.Logger
	now        func() time.Time
}

// NewTelemetryService creates a new telemetry service. publisher may be nil.
func NewTelemetryService(
	store Store,
	executor QueryRunner,
	publisher EventPublisher,
	validator *validator.Validator,
	routingKey string,
	logger *zap.Logger,
) *TelemetryService {
	return &TelemetryService{
		store:      store,
		executor:   executor,
		publisher:  publisher,
		validator:  validator,
		routingKey: routingKey,
		logger:     logger,
		now:        time.Now,
	}
}

// Ingest validates and stores one reading. A duplicate (device_id, timestamp)
// succeeds exactly like a fresh reading.
func (s *TelemetryService) Ingest(ctx context.Context, payload validator.ReadingPayload) error {
	reading, result := s.validator.ValidateReading(payload, s.now())
	if err := result.Err(); err != nil {
		return err
	}

	inserted, err := s.store.InsertReading(ctx, reading)
	if err != nil {
		return err
	}

	if !inserted {
		s.logger.Debug("duplicate reading absorbed",
			zap.String("device_id", reading.DeviceID.String()),
			zap.Time("timestamp", reading.Timestamp),
		)
		return nil
	}

	if s.publisher != nil {
		event := mq.ReadingIngestedEvent{
			DeviceID:    reading.DeviceID.String(),
			Timestamp:   reading.Timestamp.UTC().Format(time.RFC3339Nano),
			EnergyWatts: reading.EnergyWatts,
		}
		if err := s.publisher.PublishReadingIngested(ctx, event, s.routingKey); err != nil {
			// The reading is committed; the event is best effort.
			s.logger.Error("failed to publish event",
				zap.Error(err),
				zap.String("device_id", event.DeviceID),
			)
		}
	}

	return nil
}

// ListDevices returns the caller's devices
func (s *TelemetryService) ListDevices(ctx context.Context, ownerID int64) ([]db.Device, error) {
	return s.store.ListDevices(ctx, ownerID)
}

// ListDevicesWithProduct returns the caller's devices with their product type
func (s *TelemetryService) ListDevicesWithProduct(ctx context.Context, ownerID int64) ([]db.DeviceWithProduct, error) {
	return s.store.ListDevicesWithProduct(ctx, ownerID)
}

// Summarize returns the energy used by each of the caller's devices that
// reported inside [start, end]. A non-nil deviceID must belong to the caller.
func (s *TelemetryService) Summarize(ctx context.Context, ownerID int64, start, end time.Time, deviceID *uuid.UUID) ([]db.EnergySummary, error) {
	if deviceID != nil {
		if err := s.authorize(ctx, *deviceID, ownerID); err != nil {
			return nil, err
		}
	}

	stats, err := s.store.DeviceWindowStats(ctx, ownerID, start, end, deviceID)
	if err != nil {
		return nil, err
	}

	return energy.Summaries(stats), nil
}

// BucketedSeries returns the average power of one of the caller's devices
// per interval-wide bucket. Ownership is checked before the interval.
func (s *TelemetryService) BucketedSeries(ctx context.Context, deviceID uuid.UUID, ownerID int64, start, end time.Time, interval string) ([]db.TelemetryBucket, error) {
	if err := s.authorize(ctx, deviceID, ownerID); err != nil {
		return nil, err
	}

	if err := energy.ValidateInterval(interval); err != nil {
		return nil, err
	}

	return s.store.BucketedSeries(ctx, deviceID, start, end, interval)
}

// RunQuery executes generated SQL after the read-only check
func (s *TelemetryService) RunQuery(ctx context.Context, ownerID int64, sql string) (*query.Result, error) {
	if err := sqlguard.Check(sql); err != nil {
		s.logger.Warn("rejected non read-only query", zap.Int64("user_id", ownerID))
		return nil, err
	}

	result, err := s.executor.Execute(ctx, sql)
	if err != nil {
		return nil, err
	}

	s.logger.Info("query executed",
		zap.Int64("user_id", ownerID),
		zap.Int("rows", len(result.Rows)),
	)

	return result, nil
}

func (s *TelemetryService) authorize(ctx context.Context, deviceID uuid.UUID, ownerID int64) error {
	owned, err := s.store.DeviceOwnedBy(ctx, deviceID, ownerID)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("%w: device %s", apperr.ErrNotFound, deviceID)
	}
	return nil
}
