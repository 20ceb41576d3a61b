// Package eventstore persists the event history of recipe runs in SQLite.
package eventstore

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one stored run event.
type Record struct {
	Seq     int64
	RunID   string
	Type    string
	Stage   string // empty for run-level events
	At      time.Time
	Payload json.RawMessage
}

// Decode unmarshals the payload into v.
func (r Record) Decode(v any) error { return json.Unmarshal(r.Payload, v) }

// Store persists run records.
type Store interface {
	// Append stores rec and returns its sequence number. A zero At is set to now.
	Append(ctx context.Context, rec Record) (int64, error)

	// RunEvents returns the records of one run in sequence order.
	RunEvents(ctx context.Context, runID string) ([]Record, error)

	// StartedBetween returns every record of the runs whose RunStarted event
	// has from <= At <= to, in sequence order. Later events of those runs are
	// included even when they fall after to.
	StartedBetween(ctx context.Context, from, to time.Time) ([]Record, error)

	// Prune deletes every run that started before cutoff and returns the
	// number of records removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
