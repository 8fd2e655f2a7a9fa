package db

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry referenced by devices
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description *string `json:"description,omitempty"`
}

// Device represents a device owned by a single user
type Device struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	UserID    int64     `json:"-"`
	ProductID int64     `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// DeviceWithProduct is the inventory shape handed to the generation backend
type DeviceWithProduct struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Type string    `json:"type"`
}

// Reading is one timestamped power measurement. (DeviceID, Timestamp) is the
// natural key.
type Reading struct {
	DeviceID    uuid.UUID
	Timestamp   time.Time
	EnergyWatts float64
}

// DeviceWindowStats are the raw aggregates of one device's readings inside a
// query window.
type DeviceWindowStats struct {
	DeviceID   uuid.UUID
	DeviceName string
	AvgWatts   float64
	FirstSeen  time.Time
	LastSeen   time.Time
	Count      int64
}

// EnergySummary is the derived energy use of one device over a window
type EnergySummary struct {
	DeviceID   uuid.UUID `json:"device_id"`
	DeviceName string    `json:"device_name"`
	TotalKWh   float64   `json:"total_kwh"`
}

// TelemetryBucket is the average power over one time bucket
type TelemetryBucket struct {
	Bucket   time.Time `json:"bucket"`
	AvgWatts float64   `json:"avg_watts"`
}
