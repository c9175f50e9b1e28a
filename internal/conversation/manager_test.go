package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/gpresearch2025/ai-voice-agent/internal/agent"
	"github.com/gpresearch2025/ai-voice-agent/internal/calls"
)

func TestAddTurn_CreatesEntryAndOrdersTurns(t *testing.T) {
	m := NewManager()
	m.AddTurn("CA1", calls.RoleAssistant, "Hello!")
	m.AddTurn("CA1", calls.RoleCaller, "Hi, what are your hours?")

	h := m.History("CA1")
	if len(h) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(h))
	}
	if h[0].Role != calls.RoleAssistant || h[1].Role != calls.RoleCaller {
		t.Fatalf("turns out of order: %+v", h)
	}
	if h[0].Timestamp.IsZero() {
		t.Fatalf("expected server-generated timestamp")
	}
}

func TestStartCall_ResetsExistingEntry(t *testing.T) {
	m := NewManager()
	m.AddTurn("CA1", calls.RoleCaller, "old turn")
	m.StartCall("CA1")
	if got := m.History("CA1"); len(got) != 0 {
		t.Fatalf("expected reset entry, got %d turns", len(got))
	}
	sids := m.ActiveCallSIDs()
	if len(sids) != 1 || sids[0] != "CA1" {
		t.Fatalf("expected CA1 active, got %v", sids)
	}
}

func TestModelMessages_MapsCallerToUser(t *testing.T) {
	m := NewManager()
	m.AddTurn("CA1", calls.RoleAssistant, "Hello!")
	m.AddTurn("CA1", calls.RoleCaller, "I need help")

	msgs := m.ModelMessages("CA1")
	want := []agent.Message{
		{Role: agent.RoleAssistant, Content: "Hello!"},
		{Role: agent.RoleUser, Content: "I need help"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Fatalf("message %d = %+v, want %+v", i, msgs[i], want[i])
		}
	}
}

func TestEndCall_DrainsExactlyOnce(t *testing.T) {
	m := NewManager()
	m.AddTurn("CA1", calls.RoleCaller, "hello")

	first := m.EndCall("CA1")
	second := m.EndCall("CA1")
	if len(first) != 1 {
		t.Fatalf("first drain should return the transcript, got %d turns", len(first))
	}
	if len(second) != 0 {
		t.Fatalf("second drain must be empty, got %d turns", len(second))
	}
	if len(m.ActiveCallSIDs()) != 0 {
		t.Fatalf("entry must not survive finalization")
	}
}

func TestEndCall_ConcurrentDrainDeliversAtMostOnce(t *testing.T) {
	for i := 0; i < 100; i++ {
		m := NewManager()
		m.AddTurn("CA1", calls.RoleCaller, "hello")
		m.AddTurn("CA1", calls.RoleAssistant, "hi there")

		var wg sync.WaitGroup
		results := make([][]calls.ConversationTurn, 2)
		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				results[g] = m.EndCall("CA1")
			}(g)
		}
		wg.Wait()

		nonEmpty := 0
		for _, r := range results {
			if len(r) > 0 {
				nonEmpty++
			}
		}
		if nonEmpty != 1 {
			t.Fatalf("round %d: expected exactly one non-empty drain, got %d", i, nonEmpty)
		}
	}
}

func TestDifferentCallsDoNotInterfere(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	for _, sid := range []string{"CA1", "CA2", "CA3"} {
		wg.Add(1)
		go func(sid string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.AddTurn(sid, calls.RoleCaller, "turn")
			}
		}(sid)
	}
	wg.Wait()

	for _, sid := range []string{"CA1", "CA2", "CA3"} {
		if got := len(m.History(sid)); got != 50 {
			t.Fatalf("%s: expected 50 turns, got %d", sid, got)
		}
	}
}

func TestTurnTimestampsUseInjectedClock(t *testing.T) {
	m := NewManager()
	fixed := time.Unix(1700000000, 0)
	m.now = func() time.Time { return fixed }
	m.AddTurn("CA1", calls.RoleCaller, "hi")
	if got := m.History("CA1")[0].Timestamp; !got.Equal(fixed.UTC()) {
		t.Fatalf("timestamp = %v, want %v", got, fixed.UTC())
	}
}
