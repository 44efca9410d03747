package transform

import (
	"context"

	"whatsapp-image-bot/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TransformAdapter = (*limitedTransform)(nil)

type limitedTransform struct {
	inner adapter.TransformAdapter
	sem   chan struct{}
}

// NewLimitedTransform caps concurrent in-flight calls to the external
// service; excess callers block until a slot frees or their context ends.
func NewLimitedTransform(inner adapter.TransformAdapter, maxConcurrent int) adapter.TransformAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedTransform{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedTransform) Name() string { return l.inner.Name() }

func (l *limitedTransform) Transform(ctx context.Context, imageURL, instruction string) (*adapter.TransformResult, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Transform(ctx, imageURL, instruction)
}
