package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_events (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT    NOT NULL,
	event_type  TEXT    NOT NULL,
	stage       TEXT    NOT NULL DEFAULT '',
	recorded_at INTEGER NOT NULL,
	payload     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS run_events_run ON run_events(run_id, seq);
CREATE INDEX IF NOT EXISTS run_events_time ON run_events(recorded_at);
`

const selectColumns = "SELECT seq, run_id, event_type, stage, recorded_at, payload FROM run_events"

// SQLiteStore is a Store backed by a SQLite file, or ":memory:".
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens the database at path, creating the schema if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.HistoryError("could not open run history database").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	// One connection: in-memory databases stay shared and writes are serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000;" + schema); err != nil {
		_ = db.Close()
		return nil, errors.HistoryError("failed to initialize run history schema").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec Record) (int64, error) {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	payload := string(rec.Payload)
	if payload == "" {
		payload = "{}"
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO run_events (run_id, event_type, stage, recorded_at, payload) VALUES (?, ?, ?, ?, ?)",
		rec.RunID, rec.Type, rec.Stage, rec.At.UnixMilli(), payload)
	if err != nil {
		return 0, errors.HistoryError("failed to append run event").
			WithCause(err).
			WithContext("run_id", rec.RunID).
			WithContext("event_type", rec.Type).
			Build()
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) RunEvents(ctx context.Context, runID string) ([]Record, error) {
	return s.query(ctx, selectColumns+" WHERE run_id = ? ORDER BY seq", runID)
}

func (s *SQLiteStore) StartedBetween(ctx context.Context, from, to time.Time) ([]Record, error) {
	return s.query(ctx, selectColumns+` WHERE run_id IN (
			SELECT run_id FROM run_events WHERE event_type = ? AND recorded_at BETWEEN ? AND ?
		) ORDER BY seq`,
		TypeRunStarted, from.UnixMilli(), to.UnixMilli())
}

func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM run_events WHERE run_id IN (
			SELECT run_id FROM run_events WHERE event_type = ? AND recorded_at < ?
		)`, TypeRunStarted, cutoff.UnixMilli())
	if err != nil {
		return 0, errors.HistoryError("failed to prune run history").
			WithCause(err).
			WithContext("path", s.path).
			Build()
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.HistoryError("failed to query run history").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			ms      int64
			payload string
		)
		if err := rows.Scan(&rec.Seq, &rec.RunID, &rec.Type, &rec.Stage, &ms, &payload); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		rec.At = time.UnixMilli(ms)
		rec.Payload = []byte(payload)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run events: %w", err)
	}
	return out, nil
}

var _ Store = (*SQLiteStore)(nil)
