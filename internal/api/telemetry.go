package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/auth"
	"github.com/septivank/energy-insights/internal/db"
	"github.com/septivank/energy-insights/internal/query"
	"github.com/septivank/energy-insights/internal/validator"
	"github.com/septivank/energy-insights/tools/timeparser"
	"go.uber.org/zap"
)

// TelemetryService is what the telemetry endpoints call into
type TelemetryService interface {
	Ingest(ctx context.Context, payload validator.ReadingPayload) error
	ListDevices(ctx context.Context, ownerID int64) ([]db.Device, error)
	ListDevicesWithProduct(ctx context.Context, ownerID int64) ([]db.DeviceWithProduct, error)
	Summarize(ctx context.Context, ownerID int64, start, end time.Time, deviceID *uuid.UUID) ([]db.EnergySummary, error)
	BucketedSeries(ctx context.Context, deviceID uuid.UUID, ownerID int64, start, end time.Time, interval string) ([]db.TelemetryBucket, error)
	RunQuery(ctx context.Context, ownerID int64, sql string) (*query.Result, error)
}

// QueryRequest is the body of POST /api/telemetry/query
type QueryRequest struct {
	Query string `json:"query"`
}

// IngestResponse is returned for fresh and duplicate readings alike
type IngestResponse struct {
	Status string `json:"status"`
}

// TelemetryHandler exposes the telemetry service over HTTP
type TelemetryHandler struct {
	svc    TelemetryService
	logger *zap.Logger
}

// NewTelemetryHandler creates a TelemetryHandler
func NewTelemetryHandler(svc TelemetryService, logger *zap.Logger) *TelemetryHandler {
	return &TelemetryHandler{svc: svc, logger: logger}
}

// NewTelemetryRouter mounts the telemetry API under /api/telemetry. Ingest is
// open; every other route requires a bearer token.
func NewTelemetryRouter(h *TelemetryHandler, verifier *auth.Verifier, service string, logger *zap.Logger, deps ...Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(service))
	r.Get("/readyz", readyz(service, deps...))

	r.Route("/api/telemetry", func(r chi.Router) {
		r.Post("/", h.Ingest)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(verifier, logger))
			r.Get("/devices", h.ListDevices)
			r.Get("/devices/with-product", h.ListDevicesWithProduct)
			r.Get("/devices/{id}", h.BucketedSeries)
			r.Get("/devices/{id}/series", h.BucketedSeries)
			r.Get("/summary", h.Summary)
			r.Post("/query", h.Query)
		})
	})

	return r
}

// Ingest handles POST /api/telemetry/
func (h *TelemetryHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var payload validator.ReadingPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		h.fail(w, r, requireBody(err))
		return
	}

	if err := h.svc.Ingest(r.Context(), payload); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{Status: "accepted"})
}

// ListDevices handles GET /api/telemetry/devices
func (h *TelemetryHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.ListDevices(r.Context(), principal(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// ListDevicesWithProduct handles GET /api/telemetry/devices/with-product
func (h *TelemetryHandler) ListDevicesWithProduct(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.ListDevicesWithProduct(r.Context(), principal(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// Summary handles GET /api/telemetry/summary?start=&end=[&device_id=]
func (h *TelemetryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, end, err := parseWindow(q.Get("start"), q.Get("end"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var deviceID *uuid.UUID
	if raw := q.Get("device_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: invalid device_id", apperr.ErrInvalidInput))
			return
		}
		deviceID = &id
	}

	summaries, err := h.svc.Summarize(r.Context(), principal(r).UserID, start, end, deviceID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// BucketedSeries handles GET /api/telemetry/devices/{id}/series
func (h *TelemetryHandler) BucketedSeries(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: invalid device id", apperr.ErrInvalidInput))
		return
	}

	q := r.URL.Query()
	start, end, err := parseWindow(q.Get("start"), q.Get("end"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	buckets, err := h.svc.BucketedSeries(r.Context(), deviceID, principal(r).UserID, start, end, q.Get("interval"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// Query handles POST /api/telemetry/query
func (h *TelemetryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, requireBody(err))
		return
	}

	result, err := h.svc.RunQuery(r.Context(), principal(r).UserID, req.Query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *TelemetryHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeAppError(w, r, h.logger, err)
}

func parseWindow(start, end string) (time.Time, time.Time, error) {
	from, to, err := timeparser.ParseWindow(start, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return from, to, nil
}

func requireBody(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body is required", apperr.ErrInvalidInput)
	}
	return err
}
