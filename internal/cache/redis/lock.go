package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("redis: lock held by another process")

// Deletes the key only while it still holds our token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker hands out SETNX locks with a TTL, so a crashed holder releases on expiry.
type Locker struct {
	c        *Client
	unlockSc *redis.Script
}

func NewLocker(c *Client) *Locker {
	return &Locker{c: c, unlockSc: redis.NewScript(unlockLua)}
}

// Acquire returns ErrLockHeld without waiting when another holder has the key.
// The returned release func is idempotent.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	if l == nil || l.c == nil {
		return func() {}, nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	token := uuid.NewString()
	key := l.c.key("lock", name)
	ok, err := l.c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.unlockSc.Run(unlockCtx, l.c.rdb, []string{key}, token).Err()
	}, nil
}
