package voice

import (
	"context"
	"log/slog"
	"time"

	"github.com/gpresearch2025/ai-voice-agent/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// CallGuard caps how many calls a single origin number can hold open at
// once, backed by a Redis set of active call SIDs per origin. Tracking
// the sid, not just a count, means the status callback of a call that
// was rejected at the door releases nothing: only admitted calls hold
// slots. The set's TTL matches the stale-call threshold so a crashed
// process cannot leak slots forever.
//
// The guard fails open: an unreachable Redis must never block a caller.
// A nil *CallGuard is a no-op, so deployments without Redis skip it.
type CallGuard struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
	log   *slog.Logger

	acquire func(ctx context.Context, rdb *redis.Client, key, callSID string, limit int, ttl time.Duration) (bool, error)
	release func(ctx context.Context, rdb *redis.Client, key, callSID string) error
}

func NewCallGuard(rdb *redis.Client, limit int, ttl time.Duration, log *slog.Logger) *CallGuard {
	return &CallGuard{
		rdb:     rdb,
		limit:   limit,
		ttl:     ttl,
		log:     log,
		acquire: utils.AcquireCallSlot,
		release: utils.ReleaseCallSlot,
	}
}

func originKey(origin string) string { return "voice:active:" + origin }

// Acquire reserves a slot for callSID under origin, reporting whether
// the call may proceed.
func (g *CallGuard) Acquire(ctx context.Context, origin, callSID string) bool {
	if g == nil || g.rdb == nil || origin == "" || callSID == "" {
		return true
	}
	ok, err := g.acquire(ctx, g.rdb, originKey(origin), callSID, g.limit, g.ttl)
	if err != nil {
		g.log.Warn("call guard unavailable, failing open", "err", err)
		return true
	}
	return ok
}

// Release frees the slot held by callSID. Calls the guard never admitted
// hold no slot, so releasing them changes nothing.
func (g *CallGuard) Release(ctx context.Context, origin, callSID string) {
	if g == nil || g.rdb == nil || origin == "" || callSID == "" {
		return
	}
	if err := g.release(ctx, g.rdb, originKey(origin), callSID); err != nil {
		g.log.Warn("call guard release failed", "origin", origin, "call_sid", callSID, "err", err)
	}
}
