// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/model"
)

// Locker serializes the per-address critical section around pending-state
// consumption. It is held narrowly, never across external calls.
type Locker interface {
	TryLock(ctx context.Context, address string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, address, token string) error
}

type RedisLocker struct {
	client *Client
}

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{client: c}
}

func lockKey(address string) string {
	return fmt.Sprintf("addr_lock:%s", model.NormalizeAddress(address))
}

func (l *RedisLocker) TryLock(ctx context.Context, address string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < 5; i++ { // 5 tries
		ok, err := l.client.SetNX(ctx, lockKey(address), token, ttl)
		if err != nil {
			continue
		}
		if ok {
			return token, nil
		}
		time.Sleep(50 * time.Millisecond) // wait before retrying
	}
	return "", domain.ErrLockBusy
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, address, token string) error {
	_, err := l.client.Eval(ctx, luaUnlock, []string{lockKey(address)}, token)
	return err
}
