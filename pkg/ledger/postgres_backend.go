// Copyright 2025 Certen Protocol

package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/ledgermetrics"
)

// sqlDB is the subset of *sql.DB that PostgresBackend needs, satisfied by
// pkg/database.Client.DB().
type sqlDB interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// PostgresBackend implements Port over a governance_events table. Append
// serializes concurrent writers by taking a row lock (SELECT ... FOR
// UPDATE) on a single-row sentinel table before computing the next
// sequence number, so
// sequence assignment stays gap-free across connections without locking
// the whole table for reads.
type PostgresBackend struct {
	db sqlDB
}

// NewPostgresBackend wraps db (typically (*database.Client).DB()) as a Port.
func NewPostgresBackend(db sqlDB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

const eventColumns = "sequence, event_id, event_type, branch, actor_id, schema_version, trace_id, event_timestamp, prev_hash, hash, payload"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPersistedEvent(row rowScanner) (PersistedEvent, error) {
	var (
		sequence                                                     uint64
		eventID                                                      uuid.UUID
		eventType, branch, actorID, schemaVersion, traceID, prevHash string
		hash                                                         string
		ts                                                           time.Time
		payloadRaw                                                   []byte
	)
	if err := row.Scan(&sequence, &eventID, &eventType, &branch, &actorID, &schemaVersion, &traceID, &ts, &prevHash, &hash, &payloadRaw); err != nil {
		return PersistedEvent{}, err
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(payloadRaw, &payload); err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: unmarshal payload for sequence %d: %w", sequence, err)
	}
	meta := gevent.Metadata{
		EventID: eventID, EventType: eventType, Timestamp: ts, ActorID: actorID,
		SchemaVersion: schemaVersion, TraceID: traceID, PrevHash: prevHash, Hash: hash,
	}
	return PersistedEvent{Event: gevent.New(meta, payload), Sequence: sequence, Branch: branch}, nil
}

// Append inserts event under the next sequence number inside a
// transaction holding the sequence sentinel lock.
func (b *PostgresBackend) Append(ctx context.Context, event gevent.Event) (pe PersistedEvent, err error) {
	started := time.Now()
	defer func() {
		ledgermetrics.AppendLatencySeconds.Observe(time.Since(started).Seconds())
		if err != nil {
			ledgermetrics.AppendTotal.WithLabelValues("error").Inc()
			return
		}
		ledgermetrics.AppendTotal.WithLabelValues("ok").Inc()
	}()

	if !event.HasHash() {
		return PersistedEvent{}, fmt.Errorf("%w: event has no hash fields set", ErrInvalidEvent)
	}
	branch, err := event.Branch()
	if err != nil {
		return PersistedEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	payloadJSON, err := json.Marshal(event.Payload())
	if err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: marshal payload: %w", err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: begin append transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT id FROM governance_events_sequence_lock FOR UPDATE"); err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: acquire sequence lock: %w", err)
	}

	var next uint64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(sequence), 0) + 1 FROM governance_events").Scan(&next); err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: compute next sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO governance_events (sequence, event_id, event_type, branch, actor_id, schema_version, trace_id, event_timestamp, prev_hash, hash, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		next, event.EventID(), event.EventType(), branch, event.ActorID(), event.SchemaVersion(),
		event.TraceID(), event.Timestamp(), event.PrevHash(), event.Hash(), payloadJSON,
	)
	if err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: insert event at sequence %d: %w", next, err)
	}

	if err := tx.Commit(); err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: commit append: %w", err)
	}

	return PersistedEvent{Event: event, Sequence: next, Branch: branch}, nil
}

// Latest returns the most recently appended event.
func (b *PostgresBackend) Latest(ctx context.Context) (PersistedEvent, error) {
	row := b.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM governance_events ORDER BY sequence DESC LIMIT 1")
	pe, err := scanPersistedEvent(row)
	if err == sql.ErrNoRows {
		return PersistedEvent{}, ErrEmptyLedger
	}
	if err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: query latest event: %w", err)
	}
	return pe, nil
}

// MaxSequence returns the highest assigned sequence, or 0 for an empty ledger.
func (b *PostgresBackend) MaxSequence(ctx context.Context) (uint64, error) {
	var max uint64
	if err := b.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(sequence), 0) FROM governance_events").Scan(&max); err != nil {
		return 0, fmt.Errorf("ledger: query max sequence: %w", err)
	}
	return max, nil
}

// BySequence looks up a single event by its sequence number.
func (b *PostgresBackend) BySequence(ctx context.Context, sequence uint64) (PersistedEvent, error) {
	row := b.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM governance_events WHERE sequence = $1", sequence)
	pe, err := scanPersistedEvent(row)
	if err == sql.ErrNoRows {
		return PersistedEvent{}, ErrNotFound
	}
	if err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: query event at sequence %d: %w", sequence, err)
	}
	return pe, nil
}

// ByID looks up a single event by its event_id.
func (b *PostgresBackend) ByID(ctx context.Context, id uuid.UUID) (PersistedEvent, error) {
	row := b.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM governance_events WHERE event_id = $1", id)
	pe, err := scanPersistedEvent(row)
	if err == sql.ErrNoRows {
		return PersistedEvent{}, ErrNotFound
	}
	if err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: query event %s: %w", id, err)
	}
	return pe, nil
}

// Read applies the sequence range and branch filters in SQL; the
// event_type filter supports the suffix-wildcard pattern DSL, which does
// not map onto SQL LIKE cleanly (a "*" stands for exactly one
// dot-delimited segment, not an arbitrary run of characters), so it is
// applied in Go after the SQL-narrowed fetch. Limit/offset are therefore
// also applied in Go, after the full pattern filter.
func (b *PostgresBackend) Read(ctx context.Context, opts ReadOptions) ([]PersistedEvent, error) {
	matched, err := b.fetchMatching(ctx, opts)
	if err != nil {
		return nil, err
	}
	return paginate(matched, opts), nil
}

// Count mirrors Read's filtering but only counts matches; paging fields in
// opts are ignored, per the Port contract.
func (b *PostgresBackend) Count(ctx context.Context, opts ReadOptions) (uint64, error) {
	matched, err := b.fetchMatching(ctx, opts)
	if err != nil {
		return 0, err
	}
	return uint64(len(matched)), nil
}

func (b *PostgresBackend) fetchMatching(ctx context.Context, opts ReadOptions) ([]PersistedEvent, error) {
	query := "SELECT " + eventColumns + " FROM governance_events WHERE sequence >= $1"
	args := []interface{}{max64(opts.StartSequence, 1)}
	if opts.EndSequence != 0 {
		query += fmt.Sprintf(" AND sequence <= $%d", len(args)+1)
		args = append(args, opts.EndSequence)
	}
	if opts.Branch != "" {
		query += fmt.Sprintf(" AND branch = $%d", len(args)+1)
		args = append(args, opts.Branch)
	}
	query += " ORDER BY sequence ASC"

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: query events: %w", err)
	}
	defer rows.Close()

	var matched []PersistedEvent
	for rows.Next() {
		pe, err := scanPersistedEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan event row: %w", err)
		}
		if opts.EventType == "" || gevent.MatchPattern(opts.EventType, pe.Event.EventType()) {
			matched = append(matched, pe)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate event rows: %w", err)
	}
	return matched, nil
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
