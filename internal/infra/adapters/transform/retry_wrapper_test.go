//go:build !integration

package transform

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/ports/adapter"
)

// scriptedTransform returns the queued errors in order, then succeeds.
type scriptedTransform struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedTransform) Name() string { return "scripted" }

func (s *scriptedTransform) Transform(ctx context.Context, imageURL, instruction string) (*adapter.TransformResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &adapter.TransformResult{Data: []byte("ok"), ContentType: "image/png"}, nil
}

func newRetried(inner adapter.TransformAdapter, maxRetries int) *retriedTransform {
	r := NewRetriedTransform(inner, maxRetries, time.Second).(*retriedTransform)
	r.backoff = time.Millisecond
	return r
}

func TestRetriedTransform(t *testing.T) {
	ctx := context.Background()

	t.Run("retries a transient failure and succeeds", func(t *testing.T) {
		inner := &scriptedTransform{errs: []error{domain.ErrTransformUnavailable}}
		r := newRetried(inner, 2)

		res, err := r.Transform(ctx, "url", "prompt")
		if err != nil {
			t.Fatalf("expected success after retry, got %v", err)
		}
		if string(res.Data) != "ok" {
			t.Errorf("unexpected result data %q", res.Data)
		}
		if inner.calls != 2 {
			t.Errorf("expected 2 attempts, got %d", inner.calls)
		}
	})

	t.Run("never retries a rejection", func(t *testing.T) {
		inner := &scriptedTransform{errs: []error{domain.ErrTransformRejected}}
		r := newRetried(inner, 2)

		_, err := r.Transform(ctx, "url", "prompt")
		if !errors.Is(err, domain.ErrTransformRejected) {
			t.Fatalf("expected ErrTransformRejected, got %v", err)
		}
		if inner.calls != 1 {
			t.Errorf("expected a single attempt, got %d", inner.calls)
		}
	})

	t.Run("attempt count is hard capped", func(t *testing.T) {
		inner := &scriptedTransform{errs: []error{
			domain.ErrTransformUnavailable,
			domain.ErrTransformUnavailable,
			domain.ErrTransformUnavailable,
			domain.ErrTransformUnavailable,
		}}
		r := newRetried(inner, 5)

		_, err := r.Transform(ctx, "url", "prompt")
		if !errors.Is(err, domain.ErrTransformUnavailable) {
			t.Fatalf("expected ErrTransformUnavailable, got %v", err)
		}
		if inner.calls != 3 {
			t.Errorf("expected 3 attempts (1 call + 2 retries), got %d", inner.calls)
		}
	})

	t.Run("timeouts are retried with a fresh budget", func(t *testing.T) {
		inner := &scriptedTransform{errs: []error{domain.ErrTransformTimeout}}
		r := newRetried(inner, 1)

		if _, err := r.Transform(ctx, "url", "prompt"); err != nil {
			t.Fatalf("expected success on the second attempt, got %v", err)
		}
		if inner.calls != 2 {
			t.Errorf("expected 2 attempts, got %d", inner.calls)
		}
	})

	t.Run("caller cancellation stops the retry loop", func(t *testing.T) {
		inner := &scriptedTransform{errs: []error{
			domain.ErrTransformUnavailable,
			domain.ErrTransformUnavailable,
		}}
		r := newRetried(inner, 2)
		r.backoff = 50 * time.Millisecond

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := r.Transform(cctx, "url", "prompt")
		if !errors.Is(err, domain.ErrTransformUnavailable) {
			t.Fatalf("expected the last transient error, got %v", err)
		}
		if inner.calls != 1 {
			t.Errorf("expected the backoff wait to observe cancellation, got %d calls", inner.calls)
		}
	})
}
