package timeparser

import (
	"fmt"
	"strings"
	"time"
)

// zonedFormats are accepted for reading timestamps. Every format carries an
// explicit offset or Z; naive local times are rejected.
var zonedFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
}

// ParseReadingTimestamp parses an ISO-8601 timestamp that includes a zone.
func ParseReadingTimestamp(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}

	var lastErr error
	for _, format := range zonedFormats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s' (a timezone is required): %w", dateStr, lastErr)
}

// ParseWindow parses the start and end of a query window. Both bounds are
// required and start must not be after end.
func ParseWindow(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := ParseReadingTimestamp(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := ParseReadingTimestamp(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start must be before or equal to end")
	}
	return start, end, nil
}

// IsWithinTolerance checks if the reading timestamp is within tolerance of received time
func IsWithinTolerance(readingTime, receivedTime time.Time, toleranceMinutes int) bool {
	diff := readingTime.Sub(receivedTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceMinutes)*time.Minute
}
