package assistant_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/energy-insights/internal/api"
	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/assistant"
	"github.com/septivank/energy-insights/internal/auth"
	"github.com/septivank/energy-insights/internal/db"
	"github.com/septivank/energy-insights/internal/llm"
	"github.com/septivank/energy-insights/internal/query"
	"github.com/septivank/energy-insights/internal/service"
	"github.com/septivank/energy-insights/internal/validator"
	"go.uber.org/zap/zaptest"
)

type fakeTelemetry struct {
	devices    []db.DeviceWithProduct
	devicesErr error
	result     *query.Result
	queryErr   error
	queries    []string
	tokens     []string
}

func (f *fakeTelemetry) DevicesWithProduct(ctx context.Context, token string) ([]db.DeviceWithProduct, error) {
	f.tokens = append(f.tokens, token)
	return f.devices, f.devicesErr
}

func (f *fakeTelemetry) RunQuery(ctx context.Context, token, sql string) (*query.Result, error) {
	f.tokens = append(f.tokens, token)
	f.queries = append(f.queries, sql)
	return f.result, f.queryErr
}

// scriptedCompleter answers each call with the next scripted reply.
type scriptedCompleter struct {
	replies  []string
	err      error
	requests []llm.Request
}

func (s *scriptedCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	if len(s.requests) > len(s.replies) {
		return "", fmt.Errorf("unexpected call %d", len(s.requests))
	}
	return s.replies[len(s.requests)-1], nil
}

var plug = db.DeviceWithProduct{
	ID:   uuid.MustParse("e35a4495-5313-4a15-b854-5c196b0e94a9"),
	Name: "Smart Plug - 1",
	Type: "Smart Plug",
}

func TestAnswer_EmptyInventoryShortCircuits(t *testing.T) {
	telemetry := &fakeTelemetry{devices: []db.DeviceWithProduct{}}
	completer := &scriptedCompleter{}
	o := assistant.NewOrchestrator(telemetry, completer, zaptest.NewLogger(t))

	got, err := o.Answer(context.Background(), "tok", "how much energy did I use today?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got.Answer != assistant.NoDevicesAnswer {
		t.Errorf("Answer = %q", got.Answer)
	}
	if got.SQLQuery != nil || got.Results != nil {
		t.Errorf("expected null sql_query and results, got %+v", got)
	}
	if len(completer.requests) != 0 {
		t.Errorf("generation backend called %d times", len(completer.requests))
	}
	if len(telemetry.queries) != 0 {
		t.Error("query executed for a caller without devices")
	}
}

func TestAnswer_NotConfigured(t *testing.T) {
	telemetry := &fakeTelemetry{devices: []db.DeviceWithProduct{plug}}
	o := assistant.NewOrchestrator(telemetry, nil, zaptest.NewLogger(t))

	_, err := o.Answer(context.Background(), "tok", "anything")
	if !errors.Is(err, apperr.ErrNotConfigured) {
		t.Fatalf("Answer() error = %v, want ErrNotConfigured", err)
	}
}

func TestAnswer_Failures(t *testing.T) {
	tests := []struct {
		name      string
		question  string
		telemetry *fakeTelemetry
		completer *scriptedCompleter
		want      error
		wantExec  bool
	}{
		{
			name:      "blank question",
			question:  "   ",
			telemetry: &fakeTelemetry{devices: []db.DeviceWithProduct{plug}},
			completer: &scriptedCompleter{},
			want:      apperr.ErrInvalidInput,
		},
		{
			name:      "inventory unauthenticated",
			question:  "usage?",
			telemetry: &fakeTelemetry{devicesErr: fmt.Errorf("%w: rejected", apperr.ErrUnauthenticated)},
			completer: &scriptedCompleter{},
			want:      apperr.ErrUnauthenticated,
		},
		{
			name:      "malformed generation output",
			question:  "usage?",
			telemetry: &fakeTelemetry{devices: []db.DeviceWithProduct{plug}},
			completer: &scriptedCompleter{replies: []string{"SELECT * FROM telemetry"}},
			want:      apperr.ErrInvalidInput,
		},
		{
			name:      "missing query field",
			question:  "usage?",
			telemetry: &fakeTelemetry{devices: []db.DeviceWithProduct{plug}},
			completer: &scriptedCompleter{replies: []string{`{"sql":"SELECT 1"}`}},
			want:      apperr.ErrInvalidInput,
		},
		{
			name:      "write statement",
			question:  "delete my data",
			telemetry: &fakeTelemetry{devices: []db.DeviceWithProduct{plug}},
			completer: &scriptedCompleter{replies: []string{`{"query":"DELETE FROM telemetry"}`}},
			want:      apperr.ErrInvalidInput,
		},
		{
			name:      "backend timeout",
			question:  "usage?",
			telemetry: &fakeTelemetry{devices: []db.DeviceWithProduct{plug}},
			completer: &scriptedCompleter{err: fmt.Errorf("%w: timed out", apperr.ErrUpstreamUnavailable)},
			want:      apperr.ErrUpstreamUnavailable,
		},
		{
			name:     "execution rejected",
			question: "usage?",
			telemetry: &fakeTelemetry{
				devices:  []db.DeviceWithProduct{plug},
				queryErr: fmt.Errorf("%w: column does not exist", apperr.ErrInvalidInput),
			},
			completer: &scriptedCompleter{replies: []string{`{"query":"SELECT nope FROM telemetry"}`}},
			want:      apperr.ErrInvalidInput,
			wantExec:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := assistant.NewOrchestrator(tt.telemetry, tt.completer, zaptest.NewLogger(t))

			_, err := o.Answer(context.Background(), "tok", tt.question)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Answer() error = %v, want %v", err, tt.want)
			}
			if executed := len(tt.telemetry.queries) > 0; executed != tt.wantExec {
				t.Errorf("query executed = %v, want %v", executed, tt.wantExec)
			}
		})
	}
}

// scopedStore owns a single device for user 1.
type scopedStore struct {
	device db.DeviceWithProduct
}

func (s *scopedStore) InsertReading(ctx context.Context, r db.Reading) (bool, error) {
	return true, nil
}

func (s *scopedStore) ListDevices(ctx context.Context, ownerID int64) ([]db.Device, error) {
	return []db.Device{}, nil
}

func (s *scopedStore) ListDevicesWithProduct(ctx context.Context, ownerID int64) ([]db.DeviceWithProduct, error) {
	if ownerID != 1 {
		return []db.DeviceWithProduct{}, nil
	}
	return []db.DeviceWithProduct{s.device}, nil
}

func (s *scopedStore) DeviceOwnedBy(ctx context.Context, deviceID uuid.UUID, ownerID int64) (bool, error) {
	return ownerID == 1 && deviceID == s.device.ID, nil
}

func (s *scopedStore) DeviceWindowStats(ctx context.Context, ownerID int64, start, end time.Time, deviceID *uuid.UUID) ([]db.DeviceWindowStats, error) {
	return []db.DeviceWindowStats{}, nil
}

func (s *scopedStore) BucketedSeries(ctx context.Context, deviceID uuid.UUID, start, end time.Time, interval string) ([]db.TelemetryBucket, error) {
	return []db.TelemetryBucket{}, nil
}

// energyExecutor plays the database: 150 W average over 24 h is 3.6 kWh.
type energyExecutor struct {
	t      *testing.T
	device uuid.UUID
}

func (e *energyExecutor) Execute(ctx context.Context, sql string) (*query.Result, error) {
	if !strings.Contains(sql, e.device.String()) {
		e.t.Errorf("executed query is not scoped to %s: %s", e.device, sql)
	}
	return &query.Result{
		Columns: []string{"device_id", "total_kwh"},
		Rows:    [][]any{{e.device.String(), 3.6}},
	}, nil
}

func TestAnswer_EndToEnd(t *testing.T) {
	const secret = "e2e-secret"
	logger := zaptest.NewLogger(t)

	svc := service.NewTelemetryService(
		&scopedStore{device: plug},
		&energyExecutor{t: t, device: plug.ID},
		nil,
		validator.NewValidator(0),
		"telemetry.reading.ingested",
		logger,
	)
	router := api.NewTelemetryRouter(api.NewTelemetryHandler(svc, logger), auth.NewVerifier(secret, "HS256"), "telemetry-service", logger)
	srv := httptest.NewServer(router)
	defer srv.Close()

	token, err := auth.IssueToken(auth.Principal{UserID: 1, Email: "user@example.com"}, secret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	sql := "SELECT device_id, (AVG(energy_watts) * (EXTRACT(epoch FROM (MAX(timestamp) - MIN(timestamp))) / 3600)) / 1000 AS total_kwh " +
		"FROM telemetry WHERE device_id IN ('" + plug.ID.String() + "') AND timestamp > now() - INTERVAL '1 day' GROUP BY device_id LIMIT 500"
	completer := &scriptedCompleter{replies: []string{
		"```json\n{\"query\": \"" + strings.ReplaceAll(sql, `"`, `\"`) + "\"}\n```",
		"You used about 3.6 kWh today on Smart Plug - 1.",
	}}

	o := assistant.NewOrchestrator(
		assistant.NewTelemetryClient(srv.URL+"/api/telemetry", 5*time.Second),
		completer,
		logger,
	)

	got, err := o.Answer(context.Background(), token, "how much energy did I use today?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if len(completer.requests) != 2 {
		t.Fatalf("expected 2 generation calls, got %d", len(completer.requests))
	}
	first := completer.requests[0]
	if !first.JSON || !strings.Contains(first.System, plug.ID.String()) {
		t.Errorf("SQL generation request not scoped to the caller's inventory: %+v", first)
	}
	if !strings.Contains(completer.requests[1].User, "3.6") {
		t.Errorf("answer prompt should carry the query result: %s", completer.requests[1].User)
	}

	if got.SQLQuery == nil || *got.SQLQuery != sql {
		t.Errorf("sql_query = %v", got.SQLQuery)
	}
	if got.Results == nil || len(got.Results.Rows) != 1 {
		t.Fatalf("results = %+v", got.Results)
	}
	if kwh := got.Results.Rows[0][1]; fmt.Sprint(kwh) != "3.6" {
		t.Errorf("total_kwh = %v, want 3.6", kwh)
	}
	if !strings.Contains(got.Answer, "3.6") {
		t.Errorf("answer should reference 3.6 kWh: %q", got.Answer)
	}
}
