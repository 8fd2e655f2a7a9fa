package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/septivank/energy-insights/internal/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"
)

func TestServer_Lifecycle(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	logger := zaptest.NewLogger(t)

	router := NewTelemetryRouter(NewTelemetryHandler(&fakeTelemetry{}, logger), nil, "telemetry-service", logger)
	srv := NewServer(lc, config.HTTPConfig{
		Port:            0,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}, router, logger)

	lc.RequireStart()

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", resp.StatusCode)
	}

	lc.RequireStop()

	if _, err := http.Get("http://" + srv.Addr() + "/healthz"); err == nil {
		t.Error("server should not accept requests after stop")
	}
}
