package calls

import "time"

// Call is the durable record of one phone call, keyed by the provider's
// call SID for the call's full lifetime.
//
// Invariants:
// - Status moves monotonically: active -> {completed, voicemail, transferred}.
//   Terminal statuses are never overwritten (see Store.UpdateStatus).
// - EndedAt is set if and only if Status is terminal.
//
// The in-memory transcript (internal/conversation) is a derived projection;
// this record owns the persisted transcript once the call is finalized.

type Call struct {
	CallSID string `json:"call_sid" db:"call_sid"`

	From string `json:"from_number" db:"from_number"`
	To   string `json:"to_number" db:"to_number"`

	Status CallStatus `json:"status" db:"status"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	Transcript []ConversationTurn `json:"transcript" db:"transcript"`

	VoicemailURL  string `json:"voicemail_url,omitempty" db:"voicemail_url"`
	TransferredTo string `json:"transferred_to,omitempty" db:"transferred_to"`
}

type CallStatus string

const (
	CallStatusActive      CallStatus = "active"
	CallStatusCompleted   CallStatus = "completed"
	CallStatusVoicemail   CallStatus = "voicemail"
	CallStatusTransferred CallStatus = "transferred"
)

// Terminal reports whether s ends the call lifecycle.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusVoicemail, CallStatusTransferred:
		return true
	default:
		return false
	}
}

// TurnRole identifies who produced a conversation turn.
type TurnRole string

const (
	RoleCaller    TurnRole = "caller"
	RoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one utterance in a call's transcript. Turns are
// append-only while a call is active and immutable once it ends.
type ConversationTurn struct {
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats is the dashboard summary over all recorded calls.
type Stats struct {
	TotalCalls         int `json:"total_calls"`
	TodayCalls         int `json:"today_calls"`
	Transferred        int `json:"transferred"`
	Voicemail          int `json:"voicemail"`
	AvgDurationSeconds int `json:"avg_duration_seconds"`
}
