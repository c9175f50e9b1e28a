package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostgresStore implements Store on database/sql (pgx stdlib driver).
type PostgresStore struct {
	db *sql.DB

	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// EnsureSchema creates the calls table if it does not exist.
// Run once at startup, before the store takes traffic.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS calls (
			call_sid       VARCHAR(64) PRIMARY KEY,
			from_number    VARCHAR(20) NOT NULL,
			to_number      VARCHAR(20) NOT NULL,
			status         VARCHAR(20) NOT NULL DEFAULT 'active',
			started_at     TIMESTAMPTZ NOT NULL,
			ended_at       TIMESTAMPTZ,
			transcript     JSONB NOT NULL DEFAULT '[]'::jsonb,
			voicemail_url  TEXT,
			transferred_to VARCHAR(20)
		)`)
	if err != nil {
		return fmt.Errorf("calls: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateOrReplace(ctx context.Context, c Call) error {
	transcript, err := json.Marshal(turnsOrEmpty(c.Transcript))
	if err != nil {
		return fmt.Errorf("calls: marshal transcript: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calls
			(call_sid, from_number, to_number, status, started_at, ended_at,
			 transcript, voicemail_url, transferred_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (call_sid) DO UPDATE SET
			from_number    = EXCLUDED.from_number,
			to_number      = EXCLUDED.to_number,
			status         = EXCLUDED.status,
			started_at     = EXCLUDED.started_at,
			ended_at       = EXCLUDED.ended_at,
			transcript     = EXCLUDED.transcript,
			voicemail_url  = EXCLUDED.voicemail_url,
			transferred_to = EXCLUDED.transferred_to`,
		c.CallSID, c.From, c.To, string(c.Status), c.StartedAt, c.EndedAt,
		transcript, nullIfEmpty(c.VoicemailURL), nullIfEmpty(c.TransferredTo),
	)
	if err != nil {
		return fmt.Errorf("calls: upsert %s: %w", c.CallSID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, callSID string) (Call, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT call_sid, from_number, to_number, status, started_at, ended_at,
		       transcript, voicemail_url, transferred_to
		FROM calls WHERE call_sid = $1`, callSID)
	c, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]Call, error) {
	where, args := buildWhere(f)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT call_sid, from_number, to_number, status, started_at, ended_at,
		       transcript, voicemail_url, transferred_to
		FROM calls%s
		ORDER BY started_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("calls: list: %w", err)
	}
	defer rows.Close()

	out := make([]Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, f ListFilter) (int, error) {
	where, args := buildWhere(f)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calls"+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("calls: count: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, callSID string, status CallStatus, endedAt *time.Time) error {
	// Conditional on the row still being active: a terminal status is
	// never overwritten, so racing finalizers cannot downgrade it.
	var err error
	if endedAt != nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE calls SET status = $1, ended_at = $2 WHERE call_sid = $3 AND status = $4`,
			string(status), *endedAt, callSID, string(CallStatusActive))
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE calls SET status = $1 WHERE call_sid = $2 AND status = $3`,
			string(status), callSID, string(CallStatusActive))
	}
	if err != nil {
		return fmt.Errorf("calls: update status %s: %w", callSID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateTranscript(ctx context.Context, callSID string, transcript []ConversationTurn) error {
	b, err := json.Marshal(turnsOrEmpty(transcript))
	if err != nil {
		return fmt.Errorf("calls: marshal transcript: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE calls SET transcript = $1 WHERE call_sid = $2`, b, callSID)
	if err != nil {
		return fmt.Errorf("calls: update transcript %s: %w", callSID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateVoicemailURL(ctx context.Context, callSID, url string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE calls SET voicemail_url = $1 WHERE call_sid = $2`, url, callSID)
	if err != nil {
		return fmt.Errorf("calls: update voicemail %s: %w", callSID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateTransferredTo(ctx context.Context, callSID, department string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE calls SET transferred_to = $1 WHERE call_sid = $2`, department, callSID)
	if err != nil {
		return fmt.Errorf("calls: update transferred_to %s: %w", callSID, err)
	}
	return nil
}

func (s *PostgresStore) StatsSummary(ctx context.Context) (Stats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE started_at::date = CURRENT_DATE),
			COUNT(*) FILTER (WHERE status = 'transferred'),
			COUNT(*) FILTER (WHERE status = 'voicemail'),
			COALESCE(ROUND(AVG(EXTRACT(EPOCH FROM (ended_at - started_at)))
				FILTER (WHERE ended_at IS NOT NULL)), 0)
		FROM calls`)

	var st Stats
	if err := row.Scan(&st.TotalCalls, &st.TodayCalls, &st.Transferred, &st.Voicemail, &st.AvgDurationSeconds); err != nil {
		return Stats{}, fmt.Errorf("calls: stats: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) CloseStale(ctx context.Context, maxAge time.Duration) (int, error) {
	now := s.now().UTC()
	cutoff := now.Add(-maxAge)
	res, err := s.db.ExecContext(ctx,
		`UPDATE calls SET status = $1, ended_at = $2 WHERE status = $3 AND started_at < $4`,
		string(CallStatusCompleted), now, string(CallStatusActive), cutoff)
	if err != nil {
		return 0, fmt.Errorf("calls: close stale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func buildWhere(f ListFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("from_number LIKE $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(r rowScanner) (Call, error) {
	var (
		c             Call
		status        string
		endedAt       sql.NullTime
		transcript    []byte
		voicemailURL  sql.NullString
		transferredTo sql.NullString
	)
	err := r.Scan(&c.CallSID, &c.From, &c.To, &status, &c.StartedAt, &endedAt,
		&transcript, &voicemailURL, &transferredTo)
	if err != nil {
		return Call{}, err
	}
	c.Status = CallStatus(status)
	if endedAt.Valid {
		t := endedAt.Time
		c.EndedAt = &t
	}
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &c.Transcript); err != nil {
			return Call{}, fmt.Errorf("calls: decode transcript %s: %w", c.CallSID, err)
		}
	}
	c.VoicemailURL = voicemailURL.String
	c.TransferredTo = transferredTo.String
	return c, nil
}

func turnsOrEmpty(t []ConversationTurn) []ConversationTurn {
	if t == nil {
		return []ConversationTurn{}
	}
	return t
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
