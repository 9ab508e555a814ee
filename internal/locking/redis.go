package locking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// unlockScript deletes the key only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const defaultRetryInterval = 25 * time.Millisecond

// Redis is a Locker backed by SET NX PX so several service instances can share
// one conversation store.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedis builds a Redis locker. ttl bounds how long a crashed holder can
// block a key; wait bounds how long Lock polls before returning ErrBusy.
func NewRedis(client redis.UniversalClient, ttl, wait time.Duration, logger *zap.Logger) *Redis {
	return &Redis{
		client: client,
		prefix: "bi-triage:lock:",
		ttl:    ttl,
		wait:   wait,
		retry:  defaultRetryInterval,
		logger: logger,
	}
}

// Lock implements Locker.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := r.prefix + key
	token := uuid.NewString()

	var deadline time.Time
	if r.wait > 0 {
		deadline = time.Now().Add(r.wait)
	}

	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, ErrBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	return func() {
		// The caller's context may already be cancelled; release regardless.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := unlockScript.Run(releaseCtx, r.client, []string{lockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			r.logger.Warn("release conversation lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
