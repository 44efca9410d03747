package transform

import (
	"context"

	"whatsapp-image-bot/internal/domain/ports/adapter"
)

var _ adapter.TransformAdapter = (*NoopAdapter)(nil)

// NoopAdapter returns a tiny fixed PNG; used in dev mode and demos so the
// rest of the pipeline can run without a provider key.
type NoopAdapter struct{}

func NewNoopAdapter() *NoopAdapter { return &NoopAdapter{} }

func (n *NoopAdapter) Name() string { return "noop" }

// 1x1 transparent PNG.
var noopPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func (n *NoopAdapter) Transform(ctx context.Context, imageURL, instruction string) (*adapter.TransformResult, error) {
	return &adapter.TransformResult{Data: noopPNG, ContentType: "image/png", ProviderRef: "noop"}, nil
}
