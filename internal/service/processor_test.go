package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/septivank/energy-insights/internal/apperr"
)

func TestProcessMessage(t *testing.T) {
	deviceID := uuid.NewString()

	tests := []struct {
		name      string
		body      string
		wantErr   error
		wantCount int
	}{
		{
			name:      "single reading",
			body:      `{"device_id":"` + deviceID + `","timestamp":"2025-06-01T00:00:00Z","energy_watts":150}`,
			wantCount: 1,
		},
		{
			name: "batch",
			body: `[
				{"device_id":"` + deviceID + `","timestamp":"2025-06-01T00:00:00Z","energy_watts":150},
				{"device_id":"` + deviceID + `","timestamp":"2025-06-01T00:01:00Z","energy_watts":151},
				{"device_id":"` + deviceID + `","timestamp":"2025-06-01T00:01:00Z","energy_watts":152}
			]`,
			wantCount: 2,
		},
		{
			name:    "empty batch",
			body:    `[]`,
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:    "not json",
			body:    `energy=150`,
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:    "blank",
			body:    "  ",
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:    "invalid reading in batch",
			body:    `[{"device_id":"` + deviceID + `","timestamp":"2025-06-01T00:00:00Z","energy_watts":-1}]`,
			wantErr: apperr.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			svc := newService(t, store, &fakeExecutor{}, nil)

			err := svc.ProcessMessage(context.Background(), []byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ProcessMessage: %v", err)
			}
			if len(store.readings) != tt.wantCount {
				t.Errorf("stored %d readings, want %d", len(store.readings), tt.wantCount)
			}
		})
	}
}
