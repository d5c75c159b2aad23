// Package store persists event records and the segment execution log.
//
// Events are read back in the engine's input order (ascending timestamp,
// insertion order for ties). Properties are stored as JSON text so the
// schema stays identical across SQLite and PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/solatis/cohortkeeper/internal/core/db"
	"github.com/solatis/cohortkeeper/internal/types"
)

// DefaultListLimit caps ListExecutions when no limit is given.
const DefaultListLimit = 50

// Store reads and writes events and executions through named queries.
type Store struct {
	queries *db.Queries
}

// New creates a store over loaded queries.
func New(queries *db.Queries) *Store {
	return &Store{queries: queries}
}

// eventRow is the events table shape.
type eventRow struct {
	UserID     string         `db:"user_id"`
	Event      string         `db:"event"`
	OccurredAt string         `db:"occurred_at"`
	SessionID  sql.NullString `db:"session_id"`
	Properties string         `db:"properties"`
}

// LoadEvents returns every stored event in ascending time order.
func (s *Store) LoadEvents(ctx context.Context) ([]types.EventRecord, error) {
	var rows []eventRow
	if err := s.queries.Select(ctx, "list-events", &rows); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return decodeEvents(rows)
}

// LoadEventsSince returns events at or after since (canonical UTC text).
func (s *Store) LoadEventsSince(ctx context.Context, since string) ([]types.EventRecord, error) {
	var rows []eventRow
	if err := s.queries.Select(ctx, "list-events-since", &rows, since); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return decodeEvents(rows)
}

func decodeEvents(rows []eventRow) ([]types.EventRecord, error) {
	records := make([]types.EventRecord, 0, len(rows))
	for _, r := range rows {
		rec := types.EventRecord{
			UserID:    r.UserID,
			Event:     r.Event,
			Timestamp: r.OccurredAt,
			SessionID: r.SessionID.String,
		}
		if r.Properties != "" && r.Properties != "{}" {
			if err := json.Unmarshal([]byte(r.Properties), &rec.Properties); err != nil {
				return nil, fmt.Errorf("decode properties for %s/%s: %w", r.UserID, r.Event, err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// InsertEvents stores records in one transaction. Records must already be
// normalized (canonical UTC timestamps); the schema rejects anything else.
func (s *Store) InsertEvents(ctx context.Context, records []types.EventRecord) (err error) {
	tx, err := s.queries.DB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := s.queries.Preparex(ctx, tx, "insert-event")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		props := []byte("{}")
		if len(rec.Properties) > 0 {
			if props, err = json.Marshal(rec.Properties); err != nil {
				return fmt.Errorf("encode properties for record %d: %w", i, err)
			}
		}
		sessionID := sql.NullString{String: rec.SessionID, Valid: rec.SessionID != ""}
		if _, err = stmt.ExecContext(ctx, rec.UserID, rec.Event, rec.Timestamp, sessionID, string(props)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.queries.Get(ctx, "count-events", &n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
