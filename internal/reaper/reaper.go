// Package reaper periodically closes active call records whose provider
// status callback never arrived, so a dropped webhook cannot leave a
// call open forever.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/gpresearch2025/ai-voice-agent/internal/calls"
)

type Reaper struct {
	store    calls.Store
	maxAge   time.Duration
	interval time.Duration
	log      *slog.Logger
}

func New(store calls.Store, maxAge, interval time.Duration, log *slog.Logger) *Reaper {
	return &Reaper{store: store, maxAge: maxAge, interval: interval, log: log}
}

// Run sweeps on every tick until ctx is canceled. Intended to be started
// as a goroutine next to the HTTP server.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("stale call reaper started",
		"max_age", r.maxAge.String(), "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			r.log.Info("stale call reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep closes calls that have been active longer than the threshold.
// Errors are logged, not returned: the next tick retries.
func (r *Reaper) Sweep(ctx context.Context) {
	n, err := r.store.CloseStale(ctx, r.maxAge)
	if err != nil {
		r.log.Error("stale call sweep failed", "err", err)
		return
	}
	if n > 0 {
		r.log.Warn("closed stale calls", "count", n)
	}
}
