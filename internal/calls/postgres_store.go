package calls

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists call logs in the relational database.
type PostgresStore struct {
	db pgDB
}

// NewPostgresStore initializes a store backed by pgx.
func NewPostgresStore(db pgDB) *PostgresStore {
	if db == nil {
		panic("calls: pgx pool required")
	}
	return &PostgresStore{db: db}
}

// Begin inserts a call-log row; conflicts on call_sid are ignored so
// retried status callbacks stay idempotent.
func (s *PostgresStore) Begin(ctx context.Context, callSID, phone, direction, status string) error {
	query := `
		INSERT INTO call_logs (call_sid, phone_number, direction, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (call_sid) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, callSID, phone, direction, status); err != nil {
		return fmt.Errorf("calls: insert failed: %w", err)
	}
	return nil
}

// Finish records the terminal status and duration for a call.
func (s *PostgresStore) Finish(ctx context.Context, callSID, status string, duration *int) error {
	query := `UPDATE call_logs SET status = $2, duration = $3 WHERE call_sid = $1`
	tag, err := s.db.Exec(ctx, query, callSID, status, duration)
	if err != nil {
		return fmt.Errorf("calls: finish failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCallNotFound
	}
	return nil
}

// UpdateTranscript replaces the stored transcript for a call.
func (s *PostgresStore) UpdateTranscript(ctx context.Context, callSID, transcript string) error {
	query := `UPDATE call_logs SET transcript = $2 WHERE call_sid = $1`
	tag, err := s.db.Exec(ctx, query, callSID, transcript)
	if err != nil {
		return fmt.Errorf("calls: transcript update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCallNotFound
	}
	return nil
}

// Recent returns the newest call logs, most recent first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]CallLog, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, call_sid, phone_number, direction, status, duration,
			COALESCE(transcript, ''), COALESCE(summary, ''), created_at
		FROM call_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("calls: list failed: %w", err)
	}
	defer rows.Close()

	var out []CallLog
	for rows.Next() {
		var c CallLog
		if err := rows.Scan(
			&c.ID,
			&c.CallSID,
			&c.PhoneNumber,
			&c.Direction,
			&c.Status,
			&c.Duration,
			&c.Transcript,
			&c.Summary,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("calls: scan failed: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Counts aggregates call volume.
func (s *PostgresStore) Counts(ctx context.Context) (*Counts, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE direction = 'inbound'),
			COUNT(*) FILTER (WHERE direction = 'outbound')
		FROM call_logs
	`
	var c Counts
	if err := s.db.QueryRow(ctx, query).Scan(&c.Total, &c.Inbound, &c.Outbound); err != nil {
		return nil, fmt.Errorf("calls: counts failed: %w", err)
	}
	return &c, nil
}
