package redis

import (
	"context"
	"fmt"
	"time"

	"whatsapp-image-bot/internal/domain/ports/repository"
)

var _ repository.EventDeduper = (*EventDeduper)(nil)

// EventDeduper claims webhook event IDs with SETNX so redelivered events are
// dropped before any side effect. Claims are kept long enough to outlive any
// realistic platform redelivery window.
type EventDeduper struct {
	client    *Client
	retention time.Duration
}

func NewEventDeduper(client *Client) *EventDeduper {
	return &EventDeduper{client: client, retention: 24 * time.Hour}
}

func (d *EventDeduper) ClaimEvent(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		// Events without an ID cannot be deduplicated; process them.
		return true, nil
	}
	key := fmt.Sprintf("event_seen:%s", eventID)
	return d.client.SetNX(ctx, key, 1, d.retention)
}
