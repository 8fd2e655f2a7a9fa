package api

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

const readinessTimeout = 2 * time.Second

func healthz(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: service})
	}
}

func readyz(service string, deps ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for _, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Service: service})
				return
			}
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ready", Service: service})
	}
}
