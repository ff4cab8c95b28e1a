// Package lock provides an optional cross-process execution lock: the
// core assumes at-most-one writer against a store file, and this is how
// a deployment running multiple engine processes against the same store
// enforces that from outside the core.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cvxlab/internal/cverrors"
)

// Lock is a held cross-process lease; Release gives it up.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// RedisLocker acquires a lease over a named store using SET NX PX,
// identifying the holder with a random token so only the acquirer can
// release it.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Acquire blocks, retrying every 100ms, until it holds storeName's lock
// or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, storeName string) (*Lock, error) {
	key := "cvxlab:lock:" + storeName
	token := uuid.NewString()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, cverrors.Wrap(cverrors.KindOperational, err, "acquiring lock %s", key)
		}
		if ok {
			return &Lock{client: l.client, key: key, token: token}, nil
		}
		select {
		case <-ctx.Done():
			return nil, cverrors.Wrap(cverrors.KindOperational, ctx.Err(), "acquiring lock %s", key)
		case <-ticker.C:
		}
	}
}

// releaseScript deletes the key only if it still holds our token,
// avoiding releasing a lease some other holder has since acquired after
// ours expired.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

func (lk *Lock) Release(ctx context.Context) error {
	if err := lk.client.Eval(ctx, releaseScript, []string{lk.key}, lk.token).Err(); err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "releasing lock %s", lk.key)
	}
	return nil
}
