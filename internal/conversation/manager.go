// Package conversation holds the in-memory transcript of every active
// call. Entries live only while a call is in flight; EndCall drains an
// entry exactly once so the transcript is persisted exactly once no
// matter which webhook finalizes the call.
package conversation

import (
	"sync"
	"time"

	"github.com/gpresearch2025/ai-voice-agent/internal/agent"
	"github.com/gpresearch2025/ai-voice-agent/internal/calls"
)

// Manager maps call SID to an ordered turn sequence. One mutex guards the
// map; per-call sequences need no finer locking because the provider never
// sends concurrent webhooks for a single call.
//
// Memory is bounded by the number of concurrently active calls: every
// entry is removed at finalization.
type Manager struct {
	mu            sync.Mutex
	conversations map[string][]calls.ConversationTurn

	now func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		conversations: map[string][]calls.ConversationTurn{},
		now:           time.Now,
	}
}

// StartCall resets the entry for callSID to an empty sequence,
// discarding any prior turns for a reused SID.
func (m *Manager) StartCall(callSID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[callSID] = []calls.ConversationTurn{}
}

// AddTurn appends a turn with a server-generated timestamp, creating the
// entry if the SID is unknown.
func (m *Manager) AddTurn(callSID string, role calls.TurnRole, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[callSID] = append(m.conversations[callSID], calls.ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: m.now().UTC(),
	})
}

// History returns a read-only snapshot of the entry, empty if absent.
func (m *Manager) History(callSID string) []calls.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]calls.ConversationTurn(nil), m.conversations[callSID]...)
}

// ModelMessages maps the stored transcript to the gateway's two-role
// vocabulary: caller turns become user messages.
func (m *Manager) ModelMessages(callSID string) []agent.Message {
	turns := m.History(callSID)
	out := make([]agent.Message, 0, len(turns))
	for _, t := range turns {
		role := agent.RoleAssistant
		if t.Role == calls.RoleCaller {
			role = agent.RoleUser
		}
		out = append(out, agent.Message{Role: role, Content: t.Content})
	}
	return out
}

// EndCall atomically removes and returns the entry's turns. This is the
// single drain point: when two finalizers race, only the first observes a
// non-empty transcript.
func (m *Manager) EndCall(callSID string) []calls.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.conversations[callSID]
	delete(m.conversations, callSID)
	if turns == nil {
		return []calls.ConversationTurn{}
	}
	return turns
}

// ActiveCallSIDs snapshots the SIDs currently held in memory.
func (m *Manager) ActiveCallSIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.conversations))
	for sid := range m.conversations {
		out = append(out, sid)
	}
	return out
}
