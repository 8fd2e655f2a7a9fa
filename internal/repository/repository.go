package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/db"
)

// Tx is an alias for pgx.Tx
type Tx = pgx.Tx

// Repository handles database operations on the time-series store
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// BeginTx starts a new transaction
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// InsertReading stores one reading in its own transaction. A reading whose
// (device_id, timestamp) already exists is absorbed: inserted is false and no
// error is returned. The transaction is always committed or rolled back.
func (r *Repository) InsertReading(ctx context.Context, reading db.Reading) (inserted bool, err error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: failed to begin transaction: %w", apperr.ErrStorage, err)
	}
	defer tx.Rollback(ctx)

	inserted, err = r.InsertReadingTx(ctx, tx, reading)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%w: failed to commit reading: %w", apperr.ErrStorage, err)
	}

	return inserted, nil
}

// InsertReadingTx inserts a reading within a transaction
func (r *Repository) InsertReadingTx(ctx context.Context, tx pgx.Tx, reading db.Reading) (bool, error) {
	tag, err := tx.Exec(ctx, queryInsertReading,
		reading.DeviceID,
		reading.Timestamp,
		reading.EnergyWatts,
	)
	if err != nil {
		if db.SQLState(err) == db.CodeForeignKeyViolation {
			return false, fmt.Errorf("%w: device %s", apperr.ErrNotFound, reading.DeviceID)
		}
		return false, fmt.Errorf("%w: failed to insert reading: %w", apperr.ErrStorage, err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListDevices returns the devices owned by ownerID
func (r *Repository) ListDevices(ctx context.Context, ownerID int64) ([]db.Device, error) {
	rows, err := r.pool.Query(ctx, queryDevicesByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query devices: %w", apperr.ErrStorage, err)
	}
	defer rows.Close()

	devices := []db.Device{}
	for rows.Next() {
		var d db.Device
		if err := rows.Scan(&d.ID, &d.Name, &d.UserID, &d.ProductID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan device: %w", apperr.ErrStorage, err)
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration error: %w", apperr.ErrStorage, err)
	}

	return devices, nil
}

// ListDevicesWithProduct returns ownerID's devices joined with their product
// type. Only ownerID's rows are ever returned.
func (r *Repository) ListDevicesWithProduct(ctx context.Context, ownerID int64) ([]db.DeviceWithProduct, error) {
	rows, err := r.pool.Query(ctx, queryDevicesWithProductByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query devices: %w", apperr.ErrStorage, err)
	}
	defer rows.Close()

	devices := []db.DeviceWithProduct{}
	for rows.Next() {
		var d db.DeviceWithProduct
		if err := rows.Scan(&d.ID, &d.Name, &d.Type); err != nil {
			return nil, fmt.Errorf("%w: failed to scan device: %w", apperr.ErrStorage, err)
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration error: %w", apperr.ErrStorage, err)
	}

	return devices, nil
}

// DeviceOwnedBy reports whether deviceID exists and belongs to ownerID
func (r *Repository) DeviceOwnedBy(ctx context.Context, deviceID uuid.UUID, ownerID int64) (bool, error) {
	var owned bool
	if err := r.pool.QueryRow(ctx, queryDeviceOwned, deviceID, ownerID).Scan(&owned); err != nil {
		return false, fmt.Errorf("%w: failed to check device ownership: %w", apperr.ErrStorage, err)
	}
	return owned, nil
}

// DeviceWindowStats aggregates the readings of ownerID's devices inside
// [start, end]. Devices without readings in the window are absent. A non-nil
// deviceID restricts the result to that device.
func (r *Repository) DeviceWindowStats(ctx context.Context, ownerID int64, start, end time.Time, deviceID *uuid.UUID) ([]db.DeviceWindowStats, error) {
	rows, err := r.pool.Query(ctx, queryDeviceWindowStats, ownerID, start, end, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query window stats: %w", apperr.ErrStorage, err)
	}
	defer rows.Close()

	stats := []db.DeviceWindowStats{}
	for rows.Next() {
		var s db.DeviceWindowStats
		if err := rows.Scan(&s.DeviceID, &s.DeviceName, &s.AvgWatts, &s.FirstSeen, &s.LastSeen, &s.Count); err != nil {
			return nil, fmt.Errorf("%w: failed to scan window stats: %w", apperr.ErrStorage, err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration error: %w", apperr.ErrStorage, err)
	}

	return stats, nil
}

// BucketedSeries averages deviceID's readings per interval-wide bucket in
// [start, end]. The interval is bound as a parameter, never spliced into the
// statement. Empty buckets are omitted.
func (r *Repository) BucketedSeries(ctx context.Context, deviceID uuid.UUID, start, end time.Time, interval string) ([]db.TelemetryBucket, error) {
	rows, err := r.pool.Query(ctx, queryBucketedSeries, interval, deviceID, start, end)
	if err != nil {
		return nil, classifyQueryErr("failed to query buckets", err)
	}
	defer rows.Close()

	buckets := []db.TelemetryBucket{}
	for rows.Next() {
		var b db.TelemetryBucket
		if err := rows.Scan(&b.Bucket, &b.AvgWatts); err != nil {
			return nil, fmt.Errorf("%w: failed to scan bucket: %w", apperr.ErrStorage, err)
		}
		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, classifyQueryErr("rows iteration error", err)
	}

	return buckets, nil
}

// EnsureProduct returns the id of the product named p.Name, creating it
// when missing.
func (r *Repository) EnsureProduct(ctx context.Context, p db.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, queryFindProduct, p.Name).Scan(&id)
	if err == nil {
		return id, nil
	}

	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("%w: failed to query product: %w", apperr.ErrStorage, err)
	}

	if err := r.pool.QueryRow(ctx, queryInsertProduct, p.Name, p.Type, p.Description).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: failed to create product: %w", apperr.ErrStorage, err)
	}

	return id, nil
}

// CreateDevice provisions a device for ownerID
func (r *Repository) CreateDevice(ctx context.Context, name string, ownerID, productID int64) (*db.Device, error) {
	var d db.Device
	err := r.pool.QueryRow(ctx, queryInsertDevice, name, ownerID, productID).Scan(
		&d.ID,
		&d.Name,
		&d.UserID,
		&d.ProductID,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create device: %w", apperr.ErrStorage, err)
	}

	return &d, nil
}

func classifyQueryErr(msg string, err error) error {
	if db.IsQueryShapeError(err) {
		return fmt.Errorf("%w: %s: %w", apperr.ErrInvalidInput, msg, err)
	}
	return fmt.Errorf("%w: %s: %w", apperr.ErrStorage, msg, err)
}
