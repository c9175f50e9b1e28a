package calls

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("calls: not found")

// ListFilter narrows List/Count. Zero values mean "no filter".
type ListFilter struct {
	Status CallStatus
	// Search matches against the origin number (substring).
	Search string
	Limit  int
	Offset int
}

// Store is the durable call-log store.
//
// Writes are idempotent upserts keyed by call SID; last write wins on
// colliding field updates, except UpdateStatus which is conditional:
// a terminal status is never downgraded.
type Store interface {
	CreateOrReplace(ctx context.Context, c Call) error
	Get(ctx context.Context, callSID string) (Call, error)
	List(ctx context.Context, f ListFilter) ([]Call, error)
	Count(ctx context.Context, f ListFilter) (int, error)

	// UpdateStatus transitions a call's status. Transitions out of a
	// terminal status are silently ignored so racing finalizers cannot
	// downgrade a transferred or voicemail record back to completed.
	UpdateStatus(ctx context.Context, callSID string, status CallStatus, endedAt *time.Time) error

	UpdateTranscript(ctx context.Context, callSID string, transcript []ConversationTurn) error
	UpdateVoicemailURL(ctx context.Context, callSID, url string) error
	UpdateTransferredTo(ctx context.Context, callSID, department string) error

	StatsSummary(ctx context.Context) (Stats, error)

	// CloseStale force-completes active calls older than maxAge and
	// returns how many were closed. Recovery path for calls whose
	// terminal webhook never arrived.
	CloseStale(ctx context.Context, maxAge time.Duration) (int, error)

	Ping(ctx context.Context) error
}
