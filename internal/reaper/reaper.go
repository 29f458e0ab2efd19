// Package reaper sweeps expired verification rows on a schedule. Lookups
// already filter on expires_at, so the sweep only bounds table growth.
package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sl "handoff_service/internal/lib/logger"

	"github.com/robfig/cron/v3"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type Reaper struct {
	log      *slog.Logger
	store    ExpiredDeleter
	interval time.Duration
	cron     *cron.Cron
}

func New(log *slog.Logger, store ExpiredDeleter, interval time.Duration) *Reaper {
	return &Reaper{
		log:      log,
		store:    store,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start schedules the sweep and runs until the context is cancelled.
func (r *Reaper) Start(ctx context.Context) error {
	const op = "reaper.Start"

	_, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), func() {
		r.sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.cron.Start()

	go func() {
		<-ctx.Done()
		r.cron.Stop()
	}()

	return nil
}

func (r *Reaper) sweep(ctx context.Context) {
	const op = "reaper.sweep"

	log := r.log.With(slog.String("op", op))

	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := r.store.DeleteExpired(sweepCtx)
	if err != nil {
		log.Error("sweep failed", sl.Err(err))
		return
	}

	if n > 0 {
		log.Info("swept expired verifications", slog.Int64("deleted", n))
	}
}
