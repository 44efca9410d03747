package transform

import (
	"context"
	"errors"
	"time"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TransformAdapter = (*retriedTransform)(nil)

// retriedTransform bounds each attempt with the per-call timeout and applies
// a small backoff retry to the transient error classes only. This is an
// external paid call: rejected inputs are never retried and the attempt
// count is hard-capped at 2 retries.
type retriedTransform struct {
	inner       adapter.TransformAdapter
	maxRetries  int
	callTimeout time.Duration
	backoff     time.Duration
}

func NewRetriedTransform(inner adapter.TransformAdapter, maxRetries int, callTimeout time.Duration) adapter.TransformAdapter {
	if maxRetries > 2 {
		maxRetries = 2
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &retriedTransform{
		inner:       inner,
		maxRetries:  maxRetries,
		callTimeout: callTimeout,
		backoff:     time.Second,
	}
}

func (r *retriedTransform) Name() string { return r.inner.Name() }

func (r *retriedTransform) Transform(ctx context.Context, imageURL, instruction string) (*adapter.TransformResult, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, lastErr
			case <-time.After(r.backoff << (attempt - 1)):
			}
		}
		res, err := r.attempt(ctx, imageURL, instruction)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *retriedTransform) attempt(ctx context.Context, imageURL, instruction string) (*adapter.TransformResult, error) {
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}
	return r.inner.Transform(ctx, imageURL, instruction)
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrTransformUnavailable) ||
		errors.Is(err, domain.ErrTransformTimeout)
}
