package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testClient builds a client that is never dialed; argument validation
// runs before any network call.
func testClient() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "localhost:0"})
}

func TestRedisConfig_Defaults(t *testing.T) {
	got := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if got.DialTimeout != 3*time.Second || got.PoolSize != 20 {
		t.Fatalf("unexpected redis defaults: %+v", got)
	}
}

func TestCallSlot_ValidatesArguments(t *testing.T) {
	ctx := context.Background()
	if _, err := AcquireCallSlot(ctx, nil, "k", "CA1", 1, time.Minute); err == nil {
		t.Errorf("expected error for nil client")
	}
	if err := ReleaseCallSlot(ctx, nil, "k", "CA1"); err == nil {
		t.Errorf("expected error for nil client")
	}
}

func TestCallSlot_RequiresCallSID(t *testing.T) {
	ctx := context.Background()
	rdb := testClient()
	if _, err := AcquireCallSlot(ctx, rdb, "k", "", 1, time.Minute); err == nil {
		t.Errorf("expected error for empty call sid")
	}
	if err := ReleaseCallSlot(ctx, rdb, "k", ""); err == nil {
		t.Errorf("expected error for empty call sid")
	}
}

func TestCallSlotScriptsCompile(t *testing.T) {
	if callSlotAcquireScript == nil || callSlotReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}
