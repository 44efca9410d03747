package repository

import (
	"context"

	"whatsapp-image-bot/internal/domain/model"
)

// PendingImageRepository owns the per-address "image awaiting instruction"
// state. Implementations must make Take an atomic read-and-clear so a pending
// image is consumed by exactly one instruction.
type PendingImageRepository interface {
	// Set replaces any existing pending image for the address.
	Set(ctx context.Context, pending *model.PendingImage) error

	// Take atomically reads and clears the entry. Returns domain.ErrNotFound
	// when nothing is pending and domain.ErrStalePending when the entry is
	// older than the instruction window.
	Take(ctx context.Context, address string) (*model.PendingImage, error)

	// Clear discards any pending entry without returning it.
	Clear(ctx context.Context, address string) error
}

// EventDeduper makes at-least-once webhook delivery safe: the first claim of
// an event ID wins, redeliveries are dropped before any side effect.
type EventDeduper interface {
	// ClaimEvent returns true when this delivery is the first one seen.
	ClaimEvent(ctx context.Context, eventID string) (bool, error)
}
