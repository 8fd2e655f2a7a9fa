package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/energy-insights/internal/db"
	"github.com/septivank/energy-insights/internal/repository"
	"github.com/septivank/energy-insights/internal/validator"
	"go.uber.org/zap"
)

var catalog = []db.Product{
	{Name: "Smart Plug", Type: "Smart Plug", Description: describe("Smart Plug 10Amp")},
	{Name: "Air Conditioner", Type: "Air Conditioner", Description: describe("12000 BTU smart AC unit.")},
	{Name: "Smart Fan", Type: "Smart Fan", Description: describe("Smart Fan 100W")},
	{Name: "Smart Light", Type: "Smart Light", Description: describe("Smart Light 100W")},
	{Name: "Smart Fridge", Type: "Smart Fridge", Description: describe("Smart Fridge 3 Star")},
}

func describe(s string) *string { return &s }

// seedDevices makes sure the catalog exists and creates n devices of random
// products for userID. Only the devices created by this run are returned.
func seedDevices(ctx context.Context, repo *repository.Repository, logger *zap.Logger, userID int64, n int) ([]db.Device, error) {
	productIDs := make(map[string]int64, len(catalog))
	for _, p := range catalog {
		id, err := repo.EnsureProduct(ctx, p)
		if err != nil {
			return nil, err
		}
		productIDs[p.Name] = id
	}

	existing, err := repo.ListDevices(ctx, userID)
	if err != nil {
		return nil, err
	}
	namer := newDeviceNamer(existing)

	devices := make([]db.Device, 0, n)
	for i := 0; i < n; i++ {
		product := catalog[rand.Intn(len(catalog))].Name

		d, err := repo.CreateDevice(ctx, namer.next(product), userID, productIDs[product])
		if err != nil {
			return nil, err
		}
		logger.Info("created device", zap.String("name", d.Name), zap.String("device_id", d.ID.String()))
		devices = append(devices, *d)
	}

	return devices, nil
}

// deviceNamer hands out "<product> - <n>" names that the user does not have yet
type deviceNamer struct {
	taken map[string]bool
	counters map[string]int
}

func newDeviceNamer(existing []db.Device) *deviceNamer {
	taken := make(map[string]bool, len(existing))
	for _, d := range existing {
		taken[d.Name] = true
	}
	return &deviceNamer{taken: taken, counters: map[string]int{}}
}

func (n *deviceNamer) next(product string) string {
	i := n.counters[product]
	if i == 0 {
		i = 1
	}
	for {
		name := fmt.Sprintf("%s - %d", product, i)
		i++
		if !n.taken[name] {
			n.taken[name] = true
			n.counters[product] = i
			return name
		}
	}
}

// readingsFor returns one reading per minute in [start, end)
func readingsFor(deviceID uuid.UUID, start, end time.Time) []validator.ReadingPayload {
	readings := make([]validator.ReadingPayload, 0, int(end.Sub(start)/time.Minute))
	for ts := start; ts.Before(end); ts = ts.Add(time.Minute) {
		watts := 5 + rand.Float64()*245
		readings = append(readings, validator.ReadingPayload{
			DeviceID:    deviceID.String(),
			Timestamp:   ts.UTC().Format(time.RFC3339),
			EnergyWatts: &watts,
		})
	}
	return readings
}
