package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/logging"
	"go.uber.org/zap"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// maxRequestBodySize is the maximum allowed request body size (1 MB).
const maxRequestBodySize = 1 << 20

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeAppError maps err's class to a status code. Server-side failures are
// logged and answered with a generic message.
func writeAppError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	message := err.Error()

	switch {
	case status == http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
		message = "could not validate credentials"
	case status >= http.StatusInternalServerError:
		requestLogger(logger, r).Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		message = publicMessage(err)
	}

	writeError(w, status, apperr.Code(err), message)
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotConfigured):
		return "natural-language queries are not configured on this server"
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return "an upstream service is unavailable, please retry"
	default:
		return "internal server error"
	}
}

// decodeJSON reads a size-limited JSON body into v. An empty body is
// reported as io.EOF so callers with optional bodies can tell it apart.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return fmt.Errorf("%w: invalid JSON body: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

func requestLogger(logger *zap.Logger, r *http.Request) *zap.Logger {
	return logging.WithRequestID(logger, middleware.GetReqID(r.Context()))
}
