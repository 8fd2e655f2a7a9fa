package energy

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/db"
)

func TestValidateInterval(t *testing.T) {
	accepted := []string{"1h", "5m", "1d", "15 minutes", "2 hours", "30s"}
	for _, in := range accepted {
		if err := ValidateInterval(in); err != nil {
			t.Errorf("ValidateInterval(%q) error = %v", in, err)
		}
	}

	rejected := []string{"1h; DROP TABLE x", "abc", "", "h1", "1 h ", "1h'", "-1h", "1.5h"}
	for _, in := range rejected {
		err := ValidateInterval(in)
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("ValidateInterval(%q) = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestEstimateKWh(t *testing.T) {
	// 100 W at t0 and 300 W at t0+10h: avg 200 W over 10 h.
	got := EstimateKWh(200, 10*time.Hour)
	if math.Abs(got-2.0) > 1e-9 {
		t.Errorf("EstimateKWh() = %v, want 2.0", got)
	}

	if got := EstimateKWh(150, 24*time.Hour); math.Abs(got-3.6) > 1e-9 {
		t.Errorf("EstimateKWh(150W, 24h) = %v, want 3.6", got)
	}

	if got := EstimateKWh(500, 0); got != 0 {
		t.Errorf("single reading should yield 0, got %v", got)
	}
}

func TestSummaries(t *testing.T) {
	id := uuid.New()
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	out := Summaries([]db.DeviceWindowStats{{
		DeviceID:   id,
		DeviceName: "Smart Plug - 1",
		AvgWatts:   200,
		FirstSeen:  t0,
		LastSeen:   t0.Add(10 * time.Hour),
		Count:      2,
	}})

	if len(out) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(out))
	}
	if out[0].DeviceID != id || out[0].DeviceName != "Smart Plug - 1" {
		t.Errorf("unexpected summary %+v", out[0])
	}
	if math.Abs(out[0].TotalKWh-2.0) > 1e-9 {
		t.Errorf("TotalKWh = %v, want 2.0", out[0].TotalKWh)
	}

	if empty := Summaries(nil); empty == nil || len(empty) != 0 {
		t.Errorf("Summaries(nil) = %v, want empty slice", empty)
	}
}
