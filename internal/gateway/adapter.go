// Package gateway wraps the external completion service behind a narrow
// streaming interface. Callers hand it a built prompt and get generated text
// back; every transport or API failure surfaces as a typed *Error.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Request is the normalized completion request.
type Request struct {
	Model     string `json:"model"`
	System    string `json:"system"`
	User      string `json:"user"`
	SessionID string `json:"session_id,omitempty"`
	TurnID    string `json:"turn_id,omitempty"`
}

// Response is the final response after streaming deltas.
type Response struct {
	Text string `json:"text"`
}

// DeltaHandler receives streaming text fragments. Pass nil when the caller
// only needs the final text.
type DeltaHandler func(delta string) error

// Adapter bridges the assistant with the completion service.
type Adapter interface {
	StreamCompletion(ctx context.Context, req Request, onDelta DeltaHandler) (Response, error)
}

// Error is the gateway failure taxonomy. Callers never interpret transport
// details beyond this type.
type Error struct {
	Code      string
	Detail    string
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway %s: %s", e.Code, e.Detail)
}

// Config controls adapter construction.
type Config struct {
	Mode       string
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			// Auto mode keeps the service answering when the backend is down:
			// the mock only runs if the primary failed before emitting output.
			primary := withRetry(NewOpenAIAdapter(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), cfg.MaxRetries)
			return NewFallbackAdapter(primary, NewMockAdapter()), nil
		}
		return NewMockAdapter(), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("gateway API key is required for openai mode")
		}
		return withRetry(NewOpenAIAdapter(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), cfg.MaxRetries), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported gateway mode %q", cfg.Mode)
	}
}

func withRetry(a Adapter, maxRetries int) Adapter {
	if maxRetries <= 0 {
		return a
	}
	return NewRetryAdapter(a, maxRetries)
}
