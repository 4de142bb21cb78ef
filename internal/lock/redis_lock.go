package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"motortrade/internal/redis/redis_functions"
)

const (
	redisLockPrefix = "mt_lock:"
	defaultLockTTL  = 10 * time.Second
	retryEvery      = 25 * time.Millisecond
)

// Redis is a cross-instance lock: SET NX PX with a random token, released
// through the mt_unlock function so an expired holder cannot free a lock
// that was re-acquired by someone else.
type Redis struct {
	rdb   redis.Cmdable
	ttl   time.Duration
	token func() string
}

func NewRedis(rdb redis.Cmdable, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Redis{rdb: rdb, ttl: ttl, token: uuid.NewString}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := redisLockPrefix + key
	tok := r.token()

	tick := time.NewTicker(retryEvery)
	defer tick.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, k, tok, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tick.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release even if the caller's ctx is already cancelled.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := r.rdb.FCall(rctx, redis_functions.Unlock, []string{k}, tok).Err(); err != nil {
				zap.L().Warn("lock.release_failed", zap.String("key", k), zap.Error(err))
			}
		})
	}, nil
}
