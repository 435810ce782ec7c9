package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// SQLite driver for the audit store.
	_ "github.com/mattn/go-sqlite3"

	"github.com/inquestai/inquest/internal/types"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_id   TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	step_id    TEXT,
	action     TEXT NOT NULL,
	detail     TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entries_run ON audit_entries(run_id);
`

// SQLiteStore persists audit entries to a WAL-mode SQLite database and
// serves queries by run identity. It implements Sink.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenStore opens (creating if necessary) the audit database at path.
func OpenStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapError(types.AUDIT_SINK_FAILED, "failed to open audit store", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, types.WrapError(types.AUDIT_SINK_FAILED, "failed to ping audit store", err)
	}

	if _, err := conn.ExecContext(ctx, auditSchema); err != nil {
		conn.Close()
		return nil, types.WrapError(types.AUDIT_SINK_FAILED, "failed to migrate audit store", err)
	}

	return &SQLiteStore{conn: conn, path: path}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Write appends a batch of entries inside one transaction.
func (s *SQLiteStore) Write(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return types.WrapError(types.AUDIT_SINK_FAILED, "failed to begin audit transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO audit_entries (entry_id, run_id, step_id, action, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return types.WrapError(types.AUDIT_SINK_FAILED, "failed to prepare audit insert", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		detail, err := json.Marshal(e.Detail)
		if err != nil {
			detail = []byte("{}")
		}

		var stepID any
		if !e.StepID.IsZero() {
			stepID = e.StepID.String()
		}

		if _, err := stmt.ExecContext(ctx, e.ID, e.RunID.String(), stepID, string(e.Action), string(detail), e.Timestamp); err != nil {
			return types.WrapError(types.AUDIT_SINK_FAILED, "failed to insert audit entry", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.WrapError(types.AUDIT_SINK_FAILED, "failed to commit audit batch", err)
	}
	return nil
}

// QueryByRun returns all persisted entries for a run in occurrence order.
func (s *SQLiteStore) QueryByRun(ctx context.Context, runID types.ID) ([]Entry, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT entry_id, run_id, step_id, action, detail, created_at FROM audit_entries WHERE run_id = ? ORDER BY seq`,
		runID.String())
	if err != nil {
		return nil, types.WrapError(types.AUDIT_SINK_FAILED, "failed to query audit entries", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			runStr string
			stepID sql.NullString
			detail string
		)
		if err := rows.Scan(&e.ID, &runStr, &stepID, &e.Action, &detail, &e.Timestamp); err != nil {
			return nil, types.WrapError(types.AUDIT_SINK_FAILED, "failed to scan audit entry", err)
		}

		e.RunID = types.ID(runStr)
		if stepID.Valid {
			e.StepID = types.ID(stepID.String)
		}
		if detail != "" {
			if err := json.Unmarshal([]byte(detail), &e.Detail); err != nil {
				e.Detail = map[string]any{"raw": detail}
			}
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
