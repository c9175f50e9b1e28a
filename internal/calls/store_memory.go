package calls

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and early development.
// It applies the same conditional-finalize rule as the Postgres store.
type MemoryStore struct {
	mu    sync.Mutex
	calls map[string]Call

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{calls: map[string]Call{}, now: time.Now}
}

func (m *MemoryStore) CreateOrReplace(_ context.Context, c Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[c.CallSID] = c
	return nil
}

func (m *MemoryStore) Get(_ context.Context, callSID string) (Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[callSID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Call, 0)
	for _, c := range m.calls {
		if matches(c, f) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if f.Offset >= len(out) {
		return []Call{}, nil
	}
	out = out[f.Offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context, f ListFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if matches(c, f) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, callSID string, status CallStatus, endedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[callSID]
	if !ok || c.Status != CallStatusActive {
		// Unknown call or already finalized: no-op, never downgrade.
		return nil
	}
	c.Status = status
	if endedAt != nil {
		t := *endedAt
		c.EndedAt = &t
	}
	m.calls[callSID] = c
	return nil
}

func (m *MemoryStore) UpdateTranscript(_ context.Context, callSID string, transcript []ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.calls[callSID]; ok {
		c.Transcript = append([]ConversationTurn(nil), transcript...)
		m.calls[callSID] = c
	}
	return nil
}

func (m *MemoryStore) UpdateVoicemailURL(_ context.Context, callSID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.calls[callSID]; ok {
		c.VoicemailURL = url
		m.calls[callSID] = c
	}
	return nil
}

func (m *MemoryStore) UpdateTransferredTo(_ context.Context, callSID, department string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.calls[callSID]; ok {
		c.TransferredTo = department
		m.calls[callSID] = c
	}
	return nil
}

func (m *MemoryStore) StatsSummary(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var st Stats
	var totalDur time.Duration
	var ended int
	today := m.now().UTC().Truncate(24 * time.Hour)
	for _, c := range m.calls {
		st.TotalCalls++
		if !c.StartedAt.Before(today) {
			st.TodayCalls++
		}
		switch c.Status {
		case CallStatusTransferred:
			st.Transferred++
		case CallStatusVoicemail:
			st.Voicemail++
		}
		if c.EndedAt != nil {
			totalDur += c.EndedAt.Sub(c.StartedAt)
			ended++
		}
	}
	if ended > 0 {
		st.AvgDurationSeconds = int(totalDur.Seconds()) / ended
	}
	return st, nil
}

func (m *MemoryStore) CloseStale(_ context.Context, maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	cutoff := now.Add(-maxAge)
	closed := 0
	for sid, c := range m.calls {
		if c.Status == CallStatusActive && c.StartedAt.Before(cutoff) {
			c.Status = CallStatusCompleted
			t := now
			c.EndedAt = &t
			m.calls[sid] = c
			closed++
		}
	}
	return closed, nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func matches(c Call, f ListFilter) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(c.From, f.Search) {
		return false
	}
	return true
}
