// Package sweeper closes auctions whose end time passed without a timer
// firing, e.g. when Redis is off or an instance was down.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// Run sweeps once immediately and then every interval until ctx is done.
func Run(ctx context.Context, svc Expirer, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		sweepOnce(ctx, svc)
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				sweepOnce(ctx, svc)
			}
		}
	}()
}

func sweepOnce(ctx context.Context, svc Expirer) {
	n, err := svc.ExpireDue(ctx)
	if err != nil {
		zap.L().Error("sweeper.expire_due", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("sweeper.expired", zap.Int("count", n))
	}
}
