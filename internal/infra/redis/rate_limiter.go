package redis

import (
	"context"
	"fmt"
	"time"

	"whatsapp-image-bot/internal/domain/model"
)

// RateLimiter bounds inbound events per address so a single sender cannot
// monopolize the worker pool.
type RateLimiter struct {
	client *Client
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

func AddressKey(address string) string {
	return fmt.Sprintf("rate_limit:%s", model.NormalizeAddress(address))
}
