package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// slotRegistry mirrors the Lua set semantics in memory so guard behavior
// is testable without a Redis instance.
type slotRegistry struct {
	sets map[string]map[string]bool
}

func newSlotRegistry() *slotRegistry {
	return &slotRegistry{sets: map[string]map[string]bool{}}
}

func (r *slotRegistry) acquire(_ context.Context, _ *redis.Client, key, callSID string, limit int, _ time.Duration) (bool, error) {
	set := r.sets[key]
	if set == nil {
		set = map[string]bool{}
		r.sets[key] = set
	}
	if set[callSID] {
		return true, nil
	}
	if len(set) >= limit {
		return false, nil
	}
	set[callSID] = true
	return true, nil
}

func (r *slotRegistry) release(_ context.Context, _ *redis.Client, key, callSID string) error {
	delete(r.sets[key], callSID)
	return nil
}

func newTestGuard(limit int) (*CallGuard, *slotRegistry) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := NewCallGuard(redis.NewClient(&redis.Options{Addr: "localhost:0"}), limit, time.Minute, log)
	reg := newSlotRegistry()
	g.acquire = reg.acquire
	g.release = reg.release
	return g, reg
}

func TestCallGuard_RejectedCallCannotFreeALiveSlot(t *testing.T) {
	g, _ := newTestGuard(2)
	ctx := context.Background()
	origin := "+15557770000"

	if !g.Acquire(ctx, origin, "CA1") || !g.Acquire(ctx, origin, "CA2") {
		t.Fatalf("origin under cap must be admitted")
	}
	if g.Acquire(ctx, origin, "CA3") {
		t.Fatalf("origin at cap must be rejected")
	}

	// The rejected call still gets a terminal status callback; releasing
	// it must not free a slot held by a live call.
	g.Release(ctx, origin, "CA3")
	if g.Acquire(ctx, origin, "CA4") {
		t.Fatalf("cap must still hold after releasing a rejected call")
	}

	g.Release(ctx, origin, "CA1")
	if !g.Acquire(ctx, origin, "CA4") {
		t.Fatalf("slot freed by a live call's release must be reusable")
	}
}

func TestCallGuard_ReacquireSameCallIsIdempotent(t *testing.T) {
	g, _ := newTestGuard(1)
	ctx := context.Background()
	origin := "+15557770000"

	if !g.Acquire(ctx, origin, "CA1") {
		t.Fatalf("first acquire must succeed")
	}
	// Webhook retry for the same call.
	if !g.Acquire(ctx, origin, "CA1") {
		t.Fatalf("re-acquire of a held sid must succeed")
	}
	if g.Acquire(ctx, origin, "CA2") {
		t.Fatalf("a second call must still be capped")
	}
}

func TestCallGuard_FailsOpenOnBackendError(t *testing.T) {
	g, _ := newTestGuard(1)
	g.acquire = func(context.Context, *redis.Client, string, string, int, time.Duration) (bool, error) {
		return false, errors.New("redis down")
	}
	if !g.Acquire(context.Background(), "+15557770000", "CA1") {
		t.Fatalf("backend error must fail open")
	}
}

func TestCallGuard_NilGuardIsNoOp(t *testing.T) {
	var g *CallGuard
	if !g.Acquire(context.Background(), "+15550001111", "CA1") {
		t.Fatalf("nil guard must fail open")
	}
	g.Release(context.Background(), "+15550001111", "CA1")
}

func TestCallGuard_AnonymousOriginAlwaysAdmitted(t *testing.T) {
	g, _ := newTestGuard(1)
	if !g.Acquire(context.Background(), "", "CA1") {
		t.Fatalf("anonymous origin must not be capped")
	}
}
