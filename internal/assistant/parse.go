package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/septivank/energy-insights/internal/apperr"
)

const fence = "```"

// stripCodeFence removes a Markdown code fence, with or without a language
// tag, wrapped around the whole text.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, fence) || !strings.HasSuffix(s, fence) || len(s) < 2*len(fence) {
		return s
	}

	inner := s[len(fence) : len(s)-len(fence)]
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		tag := strings.TrimSpace(inner[:nl])
		if tag == "" || !strings.ContainsAny(tag, "{}\"") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}

// extractQuery decodes the backend's {"query": "..."} object.
func extractQuery(completion string) (string, error) {
	var out struct {
		Query *string `json:"query"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(completion)), &out); err != nil {
		return "", fmt.Errorf("%w: generated output is not valid JSON: %v", apperr.ErrInvalidInput, err)
	}
	if out.Query == nil || strings.TrimSpace(*out.Query) == "" {
		return "", fmt.Errorf("%w: generated output has no query", apperr.ErrInvalidInput)
	}
	return strings.TrimSpace(*out.Query), nil
}
