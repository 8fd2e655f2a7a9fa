package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/septivank/energy-insights/internal/apperr"
	"go.uber.org/zap"
)

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4096
)

// Request is one completion call. System may be empty. JSON asks the backend
// for a JSON object response where the wire format supports it.
type Request struct {
	System string
	User   string
	JSON   bool
}

// Completer returns the text completion for a request
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client calls the selected backend over HTTP
type Client struct {
	sel     Selection
	http    *resty.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a client for sel. Each Complete call is bounded by
// timeout.
func NewClient(sel Selection, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		sel:     sel,
		http:    resty.New().SetBaseURL(strings.TrimRight(sel.BaseURL, "/")),
		timeout: timeout,
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends req to the backend. Network failures, timeouts, error
// statuses and empty completions are apperr.ErrUpstreamUnavailable.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		text string
		err  error
	)
	if c.sel.Provider == ProviderAnthropic {
		text, err = c.completeAnthropic(ctx, req)
	} else {
		text, err = c.completeChat(ctx, req)
	}

	c.logger.Debug("generation call finished",
		zap.String("backend", c.sel.String()),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("ok", err == nil),
	)

	return text, err
}

func (c *Client) completeChat(ctx context.Context, req Request) (string, error) {
	body := chatRequest{Model: c.sel.Model}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.User})
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.sel.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/chat/completions")
	if err := checkResponse(resp, err); err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("%w: failed to decode completion: %v", apperr.ErrUpstreamUnavailable, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", apperr.ErrUpstreamUnavailable)
	}

	return out.Choices[0].Message.Content, nil
}

func (c *Client) completeAnthropic(ctx context.Context, req Request) (string, error) {
	body := anthropicRequest{
		Model:     c.sel.Model,
		MaxTokens: anthropicMaxTokens,
		System:    req.System,
		Messages:  []chatMessage{{Role: "user", Content: req.User}},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-api-key", c.sel.APIKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/messages")
	if err := checkResponse(resp, err); err != nil {
		return "", err
	}

	var out anthropicResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("%w: failed to decode completion: %v", apperr.ErrUpstreamUnavailable, err)
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty completion", apperr.ErrUpstreamUnavailable)
	}

	return sb.String(), nil
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: generation backend timed out", apperr.ErrUpstreamUnavailable)
		}
		return fmt.Errorf("%w: generation backend request failed: %v", apperr.ErrUpstreamUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: generation backend returned %s", apperr.ErrUpstreamUnavailable, resp.Status())
	}
	return nil
}
