// Package expirywatcher turns auction end times into Redis key expiries and
// closes the auction when the key expires.
package expirywatcher

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"motortrade/internal/redis/redis_functions"
)

const keyPrefix = "mt_end:"

func timerKey(auctionID string) string { return keyPrefix + auctionID }

// Expirer is the part of the auction service the watcher drives.
type Expirer interface {
	Expire(ctx context.Context, auctionID string) error
}

// Scheduler arms one expiring key per auction. Re-arming replaces the TTL.
type Scheduler struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewScheduler(rdb redis.Cmdable) *Scheduler {
	return &Scheduler{rdb: rdb, now: time.Now}
}

func (s *Scheduler) Arm(ctx context.Context, auctionID string, at time.Time) error {
	ttl := at.Sub(s.now()).Milliseconds()
	return s.rdb.FCall(ctx, redis_functions.ArmTimer, []string{timerKey(auctionID)}, ttl).Err()
}

// Run listens to key-expiry events and expires the matching auctions.
// Start it once per instance; Expire is a no-op when another instance or
// the sweeper got there first.
func Run(ctx context.Context, rdb *redis.Client, svc Expirer) {
	if err := rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		zap.L().Warn("expirywatcher.config_set", zap.Error(err))
	}
	ps := rdb.PSubscribe(ctx, "__keyevent@*__:expired")
	defer ps.Close()
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			handle(ctx, svc, m.Payload)
		}
	}
}

func handle(ctx context.Context, svc Expirer, key string) {
	id, ok := strings.CutPrefix(key, keyPrefix)
	if !ok || id == "" {
		return
	}
	if err := svc.Expire(ctx, id); err != nil {
		zap.L().Warn("expirywatcher.expire", zap.String("auction_id", id), zap.Error(err))
	}
}
