package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/septivank/energy-insights/internal/assistant"
	"github.com/septivank/energy-insights/internal/auth"
	"go.uber.org/zap"
)

// Answerer answers a question on behalf of the caller holding token
type Answerer interface {
	Answer(ctx context.Context, token, question string) (*assistant.Answer, error)
}

// AskRequest is the body of POST /api/ai/query
type AskRequest struct {
	UserQuery string `json:"user_query"`
}

// AssistantHandler exposes the NL query pipeline over HTTP
type AssistantHandler struct {
	answerer Answerer
	logger   *zap.Logger
}

// NewAssistantHandler creates an AssistantHandler
func NewAssistantHandler(answerer Answerer, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{answerer: answerer, logger: logger}
}

// NewAssistantRouter mounts the assistant API under /api/ai
func NewAssistantRouter(h *AssistantHandler, verifier *auth.Verifier, service string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(service))

	r.Route("/api/ai", func(r chi.Router) {
		r.Use(requireAuth(verifier, logger))
		r.Post("/query", h.Query)
	})

	return r
}

// Query handles POST /api/ai/query. The question comes from the JSON body or,
// failing that, the user_query query parameter.
func (h *AssistantHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeAppError(w, r, h.logger, err)
		return
	}

	question := req.UserQuery
	if question == "" {
		question = r.URL.Query().Get("user_query")
	}

	answer, err := h.answerer.Answer(r.Context(), auth.TokenFromContext(r.Context()), question)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}
