package reaper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gpresearch2025/ai-voice-agent/internal/calls"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweep_ClosesOnlyOverdueActiveCalls(t *testing.T) {
	store := calls.NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []calls.Call{
		{CallSID: "CA-old", Status: calls.CallStatusActive, StartedAt: now.Add(-30 * time.Minute)},
		{CallSID: "CA-fresh", Status: calls.CallStatusActive, StartedAt: now.Add(-5 * time.Minute)},
		{CallSID: "CA-done", Status: calls.CallStatusTransferred, StartedAt: now.Add(-2 * time.Hour)},
	}
	for _, c := range seed {
		if err := store.CreateOrReplace(ctx, c); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	New(store, 15*time.Minute, time.Minute, quietLogger()).Sweep(ctx)

	got := map[string]calls.CallStatus{}
	for _, sid := range []string{"CA-old", "CA-fresh", "CA-done"} {
		c, err := store.Get(ctx, sid)
		if err != nil {
			t.Fatalf("get %s: %v", sid, err)
		}
		got[sid] = c.Status
	}
	if got["CA-old"] != calls.CallStatusCompleted {
		t.Errorf("overdue call not closed, status %s", got["CA-old"])
	}
	if got["CA-fresh"] != calls.CallStatusActive {
		t.Errorf("fresh call touched, status %s", got["CA-fresh"])
	}
	if got["CA-done"] != calls.CallStatusTransferred {
		t.Errorf("finalized call rewritten, status %s", got["CA-done"])
	}
}

type failingStore struct {
	calls.Store
	mu     sync.Mutex
	sweeps int
}

func (f *failingStore) CloseStale(context.Context, time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return 0, errors.New("db down")
}

func (f *failingStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

func TestRun_KeepsTickingPastErrorsAndStopsOnCancel(t *testing.T) {
	store := &failingStore{Store: calls.NewMemoryStore()}
	r := New(store, 15*time.Minute, 5*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("reaper stopped sweeping after %d sweeps", store.count())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("reaper did not stop on cancel")
	}
}
