package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/avitale/eduassist/internal/reliability"
)

var (
	retryBaseDelay = 500 * time.Millisecond
	retryCapDelay  = 5 * time.Second
)

// RetryAdapter retries retryable gateway failures with capped exponential
// backoff. A request is never retried once a delta has reached the caller, so
// at most one result is ever user-visible per request.
type RetryAdapter struct {
	inner      Adapter
	maxRetries int
}

func NewRetryAdapter(inner Adapter, maxRetries int) *RetryAdapter {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &RetryAdapter{inner: inner, maxRetries: maxRetries}
}

func (r *RetryAdapter) StreamCompletion(ctx context.Context, req Request, onDelta DeltaHandler) (Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		delivered := false
		wrapped := onDelta
		if onDelta != nil {
			wrapped = func(delta string) error {
				delivered = true
				return onDelta(delta)
			}
		}

		resp, err := r.inner.StreamCompletion(ctx, req, wrapped)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if delivered || !isRetryable(err) || attempt == r.maxRetries {
			break
		}
		if err := sleepCtx(ctx, reliability.ExponentialBackoff(attempt, retryBaseDelay, retryCapDelay)); err != nil {
			return Response{}, lastErr
		}
	}
	return Response{}, lastErr
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Retryable || reliability.IsRetryableGatewayCode(gwErr.Code)
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
