package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/link4deal/commerce-api/internal/repository"
)

// expiredGrace is how long an expired cart is kept around before deletion,
// so a returning user still sees what they had.
const expiredGrace = 24 * time.Hour

// CartJanitor periodically marks stale carts abandoned, expires carts past
// their TTL, and deletes long-expired ones.
type CartJanitor struct {
	cartRepo     repository.CartRepository
	interval     time.Duration
	abandonAfter time.Duration
	log          *slog.Logger
	done         chan struct{}
}

func NewCartJanitor(cartRepo repository.CartRepository, interval, abandonAfter time.Duration, log *slog.Logger) *CartJanitor {
	return &CartJanitor{
		cartRepo:     cartRepo,
		interval:     interval,
		abandonAfter: abandonAfter,
		log:          log,
		done:         make(chan struct{}),
	}
}

func (j *CartJanitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.sweep(ctx)
		for {
			select {
			case <-ticker.C:
				j.sweep(ctx)
			case <-j.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	j.log.Info("cart janitor started", "interval", j.interval)
}

func (j *CartJanitor) Stop() { close(j.done) }

func (j *CartJanitor) sweep(ctx context.Context) {
	now := time.Now()

	abandoned, err := j.cartRepo.SweepAbandoned(ctx, now.Add(-j.abandonAfter))
	if err != nil {
		j.log.Error("sweep abandoned carts", "error", err)
	}

	expired, err := j.cartRepo.MarkExpired(ctx)
	if err != nil {
		j.log.Error("mark expired carts", "error", err)
	}

	deleted, err := j.cartRepo.DeleteExpired(ctx, expiredGrace)
	if err != nil {
		j.log.Error("delete expired carts", "error", err)
	}

	if abandoned > 0 || expired > 0 || deleted > 0 {
		j.log.Info("cart sweep completed",
			"abandoned", abandoned, "expired", expired, "deleted", deleted)
	}
}
