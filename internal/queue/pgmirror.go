package queue

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// PGMirror is an optional write-through sink that mirrors queue record
// status transitions into Postgres for dashboards/audit. It is never
// required for correctness — the file-based queue remains the single
// source of truth — and is off by default. A thin struct wrapping a
// *sql.DB, one table, no business logic beyond persistence, using pgx only
// as its database/sql driver.
type PGMirror struct {
	db *sql.DB
}

// OpenPGMirror connects to Postgres at dsn and returns a ready PGMirror. Run
// the "migrate" command against the same DSN first to create queue_records.
func OpenPGMirror(ctx context.Context, dsn string) (*PGMirror, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgmirror: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgmirror: ping: %w", err)
	}
	return &PGMirror{db: db}, nil
}

// Close releases the underlying connection pool.
func (m *PGMirror) Close() error {
	return m.db.Close()
}

// Upsert mirrors one record's current state, written through on every
// update_status call by the processor.
func (m *PGMirror) Upsert(ctx context.Context, rec Record) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO queue_records (id, kind, timestamp, status, retry_count, error, session_id, transcript_path, cwd, pr_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			retry_count = EXCLUDED.retry_count,
			error = EXCLUDED.error
	`, rec.ID, string(rec.Kind), rec.Timestamp, string(rec.Status), rec.RetryCount, rec.Error,
		rec.SessionID, rec.TranscriptPath, rec.Cwd, rec.PRURL)
	if err != nil {
		return fmt.Errorf("pgmirror: upsert %s: %w", rec.ID, err)
	}
	return nil
}

// MirroringQueue wraps a Queue so every UpdateStatus call is echoed to a
// PGMirror. Append is unaffected: the file remains authoritative for
// pending/unacknowledged records.
type MirroringQueue struct {
	*Queue
	mirror *PGMirror
}

// NewMirroringQueue returns a Queue that write-throughs status updates to
// mirror in addition to rewriting the file.
func NewMirroringQueue(q *Queue, mirror *PGMirror) *MirroringQueue {
	return &MirroringQueue{Queue: q, mirror: mirror}
}

func (q *MirroringQueue) UpdateStatus(id string, newStatus Status, errText string) error {
	if err := q.Queue.UpdateStatus(id, newStatus, errText); err != nil {
		return err
	}
	records, err := q.Queue.ReadAll()
	if err != nil {
		return nil // the file write already succeeded; mirroring is best-effort
	}
	for _, r := range records {
		if r.ID == id {
			if err := q.mirror.Upsert(context.Background(), r); err != nil {
				slog.Warn("pg mirror upsert failed, continuing without it", "id", id, "error", err)
			}
			break
		}
	}
	return nil
}
