// Package sqlite persists the audit trail in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register the pure-Go sqlite driver

	"civicdesk/internal/audit/core"
)

const schema = `CREATE TABLE IF NOT EXISTS audit_entries (
	id TEXT PRIMARY KEY,
	occurred_at TEXT NOT NULL,
	actor TEXT NOT NULL,
	action TEXT NOT NULL,
	entity TEXT NOT NULL,
	record_ids TEXT NOT NULL,
	outcome TEXT NOT NULL,
	detail TEXT NOT NULL
)`

// timeLayout is fixed width so occurred_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a core.Logger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the database at path.
func New(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "civicdesk-audit.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure audit table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Record implements core.Logger.
func (s *Store) Record(ctx context.Context, entry core.Entry) error {
	e := core.Normalize(entry)
	ids, err := json.Marshal(e.RecordIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_entries(id, occurred_at, actor, action, entity, record_ids, outcome, detail) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OccurredAt.UTC().Format(timeLayout), e.Actor, string(e.Action), e.Entity, string(ids), e.Outcome, e.Detail)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List implements core.Logger.
func (s *Store) List(ctx context.Context, filter core.Filter) ([]core.Entry, error) {
	var where []string
	var args []any
	if filter.Entity != "" {
		where = append(where, "entity = ?")
		args = append(args, filter.Entity)
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(filter.Action))
	}
	query := `SELECT id, occurred_at, actor, action, entity, record_ids, outcome, detail FROM audit_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []core.Entry
	for rows.Next() {
		var e core.Entry
		var at, action, ids string
		if err := rows.Scan(&e.ID, &at, &e.Actor, &action, &e.Entity, &ids, &e.Outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = core.Action(action)
		if e.OccurredAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("decode occurred_at: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &e.RecordIDs); err != nil {
			return nil, fmt.Errorf("decode record_ids: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close implements core.Logger.
func (s *Store) Close() error { return s.db.Close() }
