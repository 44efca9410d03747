package storage

import (
	"context"

	"github.com/rs/zerolog"

	"whatsapp-image-bot/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.MediaStore = (*NoopStore)(nil)

// NoopStore discards uploads and hands back a fake URL. Used in dev mode
// alongside the noop transform so the pipeline runs without a bucket.
type NoopStore struct {
	log *zerolog.Logger
}

func NewNoopStore(logger *zerolog.Logger) *NoopStore {
	return &NoopStore{log: logger}
}

func (n *NoopStore) Store(ctx context.Context, data []byte, contentType, objectKey string) (string, error) {
	n.log.Info().Str("object_key", objectKey).Int("bytes", len(data)).Str("content_type", contentType).Msg("noop store discarding upload")
	return "https://storage.invalid/" + objectKey, nil
}
