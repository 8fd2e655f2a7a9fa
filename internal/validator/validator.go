package validator

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/db"
	"github.com/septivank/energy-insights/tools/timeparser"
)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Reason  string
}

// Err returns nil for a valid result and an apperr.ErrInvalidInput carrying
// the reason otherwise.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, r.Reason)
}

// ReadingPayload is the ingestion wire shape of a single reading
type ReadingPayload struct {
	DeviceID    string   `json:"device_id"`
	Timestamp   string   `json:"timestamp"`
	EnergyWatts *float64 `json:"energy_watts"`
}

// Validator handles reading validation with configurable parameters
type Validator struct {
	timestampToleranceMinutes int
}

// NewValidator creates a new validator. A tolerance of 0 disables the
// timestamp window check.
func NewValidator(timestampToleranceMinutes int) *Validator {
	return &Validator{
		timestampToleranceMinutes: timestampToleranceMinutes,
	}
}

// ValidateReading checks a payload and converts it into a storable reading
func (v *Validator) ValidateReading(p ReadingPayload, receivedAt time.Time) (db.Reading, ValidationResult) {
	result := ValidationResult{IsValid: true}

	deviceID, err := uuid.Parse(p.DeviceID)
	if err != nil {
		result.IsValid = false
		result.Reason = fmt.Sprintf("invalid device_id: %v", err)
		return db.Reading{}, result
	}

	if p.EnergyWatts == nil {
		result.IsValid = false
		result.Reason = "energy_watts is required"
		return db.Reading{}, result
	}

	value := *p.EnergyWatts
	if math.IsNaN(value) || math.IsInf(value, 0) {
		result.IsValid = false
		result.Reason = "energy_watts must be a finite number"
		return db.Reading{}, result
	}

	if value < 0 {
		result.IsValid = false
		result.Reason = "negative value detected"
		return db.Reading{}, result
	}

	readingTime, err := timeparser.ParseReadingTimestamp(p.Timestamp)
	if err != nil {
		result.IsValid = false
		result.Reason = fmt.Sprintf("invalid timestamp format: %v", err)
		return db.Reading{}, result
	}

	if v.timestampToleranceMinutes > 0 &&
		!timeparser.IsWithinTolerance(readingTime, receivedAt, v.timestampToleranceMinutes) {
		result.IsValid = false
		result.Reason = fmt.Sprintf("timestamp outside tolerance window (±%d minutes)", v.timestampToleranceMinutes)
		return db.Reading{}, result
	}

	return db.Reading{
		DeviceID:    deviceID,
		Timestamp:   readingTime,
		EnergyWatts: value,
	}, result
}
