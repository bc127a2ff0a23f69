package gateway

import (
	"context"
	"errors"
	"fmt"
)

// FallbackAdapter attempts a primary adapter first and falls back on error.
// Context cancellation is the caller's decision and never triggers fallback.
type FallbackAdapter struct {
	primary  Adapter
	fallback Adapter
}

func NewFallbackAdapter(primary, fallback Adapter) *FallbackAdapter {
	return &FallbackAdapter{primary: primary, fallback: fallback}
}

func (a *FallbackAdapter) StreamCompletion(ctx context.Context, req Request, onDelta DeltaHandler) (Response, error) {
	if a == nil || a.primary == nil {
		if a != nil && a.fallback != nil {
			return a.fallback.StreamCompletion(ctx, req, onDelta)
		}
		return Response{}, fmt.Errorf("fallback adapter misconfigured")
	}

	delivered := false
	wrapped := onDelta
	if onDelta != nil {
		wrapped = func(delta string) error {
			delivered = true
			return onDelta(delta)
		}
	}

	resp, err := a.primary.StreamCompletion(ctx, req, wrapped)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Response{}, err
	}
	// Once the primary has streamed anything, switching providers would show
	// the user two partial answers.
	if delivered || a.fallback == nil {
		return Response{}, err
	}

	fallbackResp, fallbackErr := a.fallback.StreamCompletion(ctx, req, onDelta)
	if fallbackErr != nil {
		return Response{}, fmt.Errorf("primary adapter error: %w; fallback adapter error: %v", err, fallbackErr)
	}
	return fallbackResp, nil
}
