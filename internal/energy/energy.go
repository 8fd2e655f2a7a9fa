// Package energy holds the arithmetic and input rules of the aggregation
// engine. The heavy lifting (averages, bucketing) happens in the database;
// this package turns the raw aggregates into reported figures.
package energy

import (
	"fmt"
	"regexp"
	"time"

	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/db"
)

// intervalPattern is the only accepted shape for a bucket width: digits,
// optional whitespace, a unit word. "1h", "5m", "15 minutes".
var intervalPattern = regexp.MustCompile(`^\d+\s*\w+$`)

// ValidateInterval rejects bucket widths that do not match intervalPattern.
func ValidateInterval(interval string) error {
	if !intervalPattern.MatchString(interval) {
		return fmt.Errorf("%w: interval %q must look like 1h, 5m or 1d", apperr.ErrInvalidInput, interval)
	}
	return nil
}

// EstimateKWh approximates energy as average power times the observed span:
//
//	kWh = avg(W) * hours(max(ts) - min(ts)) / 1000
//
// This is not trapezoidal integration. It tolerates irregular sampling but is
// biased when sampling density varies across the window, and a single
// reading yields zero.
func EstimateKWh(avgWatts float64, span time.Duration) float64 {
	if span <= 0 {
		return 0
	}
	return avgWatts * span.Hours() / 1000
}

// Summaries converts per-device window aggregates into energy summaries.
func Summaries(stats []db.DeviceWindowStats) []db.EnergySummary {
	out := make([]db.EnergySummary, 0, len(stats))
	for _, s := range stats {
		out = append(out, db.EnergySummary{
			DeviceID:   s.DeviceID,
			DeviceName: s.DeviceName,
			TotalKWh:   EstimateKWh(s.AvgWatts, s.LastSeen.Sub(s.FirstSeen)),
		})
	}
	return out
}
