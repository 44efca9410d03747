package adapter

import "context"

// Messenger is the reply-dispatch port. Send is best effort: a delivery
// failure is logged by the caller and never reverses a committed debit.
type Messenger interface {
	// Send delivers text and optionally one media attachment to an address.
	Send(ctx context.Context, to, text, mediaURL string) error

	// FetchMedia downloads platform-hosted inbound media, which sits behind
	// the platform's credentials. Returns bytes and the content type.
	FetchMedia(ctx context.Context, mediaURL string) ([]byte, string, error)

	// NeedsRehost reports whether a media URL is only reachable with
	// platform credentials and must be re-hosted before an external service
	// can fetch it.
	NeedsRehost(mediaURL string) bool
}
