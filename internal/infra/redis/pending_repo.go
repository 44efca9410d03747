package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/model"
	"whatsapp-image-bot/internal/domain/ports/repository"
)

var _ repository.PendingImageRepository = (*PendingRepo)(nil)

// takeScript reads and deletes in one round trip so two concurrent
// instructions can never both consume the same pending image.
var takeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v then
	redis.call("DEL", KEYS[1])
end
return v`)

// PendingRepo keeps the per-address "image awaiting instruction" entry in
// Redis. Keys are retained for twice the instruction window so a late
// instruction can be told apart from one that never had an image: within
// [window, 2*window) Take returns ErrStalePending, after that ErrNotFound.
type PendingRepo struct {
	client *Client
	window time.Duration
}

func NewPendingRepo(client *Client, window time.Duration) *PendingRepo {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &PendingRepo{client: client, window: window}
}

func (r *PendingRepo) key(address string) string {
	return fmt.Sprintf("pending_image:%s", model.NormalizeAddress(address))
}

// Set replaces any existing entry: latest image wins.
func (r *PendingRepo) Set(ctx context.Context, pending *model.PendingImage) error {
	if pending == nil || pending.ImageURL == "" {
		return domain.ErrInvalidArgument
	}
	if pending.ReceivedAt.IsZero() {
		pending.ReceivedAt = time.Now()
	}
	data, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(pending.Address), data, 2*r.window)
}

func (r *PendingRepo) Take(ctx context.Context, address string) (*model.PendingImage, error) {
	res, err := r.client.Eval(ctx, takeScript, []string{r.key(address)})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	raw, ok := res.(string)
	if !ok || raw == "" {
		return nil, domain.ErrNotFound
	}
	var pending model.PendingImage
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, err
	}
	if pending.Expired(time.Now(), r.window) {
		return nil, domain.ErrStalePending
	}
	return &pending, nil
}

func (r *PendingRepo) Clear(ctx context.Context, address string) error {
	return r.client.Del(ctx, r.key(address))
}
