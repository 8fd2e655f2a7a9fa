package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/db"
	"github.com/septivank/energy-insights/internal/query"
)

// TelemetryClient calls the telemetry service on behalf of the caller,
// forwarding the caller's bearer token
type TelemetryClient struct {
	http *resty.Client
}

// NewTelemetryClient creates a client for the telemetry API rooted at
// baseURL, e.g. http://localhost:8002/api/telemetry
func NewTelemetryClient(baseURL string, timeout time.Duration) *TelemetryClient {
	return &TelemetryClient{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout),
	}
}

type remoteError struct {
	Message string `json:"message"`
}

// DevicesWithProduct returns the caller's device inventory
func (c *TelemetryClient) DevicesWithProduct(ctx context.Context, token string) ([]db.DeviceWithProduct, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get("/devices/with-product")
	if err := checkResponse("device inventory", resp, err); err != nil {
		return nil, err
	}

	devices := []db.DeviceWithProduct{}
	if err := json.Unmarshal(resp.Body(), &devices); err != nil {
		return nil, fmt.Errorf("%w: failed to decode device inventory: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return devices, nil
}

// RunQuery executes sql on the telemetry service
func (c *TelemetryClient) RunQuery(ctx context.Context, token, sql string) (*query.Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"query": sql}).
		Post("/query")
	if err := checkResponse("query execution", resp, err); err != nil {
		return nil, err
	}

	// Keep numbers as written so large integers survive the round trip.
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()

	var result query.Result
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode query result: %v", apperr.ErrUpstreamUnavailable, err)
	}
	if result.Rows == nil {
		result.Rows = [][]any{}
	}
	return &result, nil
}

// checkResponse maps collaborator failures: 400 is the caller's fault, 401
// is an unauthenticated caller, anything else is an unavailable upstream.
func checkResponse(call string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s failed: %v", apperr.ErrUpstreamUnavailable, call, err)
	}

	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, remoteMessage(resp))
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: telemetry service rejected the token", apperr.ErrUnauthenticated)
	default:
		return fmt.Errorf("%w: %s returned %s", apperr.ErrUpstreamUnavailable, call, resp.Status())
	}
}

func remoteMessage(resp *resty.Response) string {
	var body remoteError
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(resp.Body()))
}
