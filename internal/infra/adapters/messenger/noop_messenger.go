package messenger

import (
	"context"

	"github.com/rs/zerolog"

	"whatsapp-image-bot/internal/domain/ports/adapter"
)

var _ adapter.Messenger = (*NoopMessenger)(nil)

// NoopMessenger logs instead of delivering; used in dev mode.
type NoopMessenger struct {
	log *zerolog.Logger
}

func NewNoopMessenger(logger *zerolog.Logger) *NoopMessenger {
	return &NoopMessenger{log: logger}
}

func (n *NoopMessenger) Send(ctx context.Context, to, text, mediaURL string) error {
	n.log.Info().Str("to", to).Str("media_url", mediaURL).Str("text", text).Msg("noop send")
	return nil
}

func (n *NoopMessenger) FetchMedia(ctx context.Context, mediaURL string) ([]byte, string, error) {
	n.log.Info().Str("media_url", mediaURL).Msg("noop media fetch")
	return []byte("noop"), "image/jpeg", nil
}

func (n *NoopMessenger) NeedsRehost(mediaURL string) bool { return false }
