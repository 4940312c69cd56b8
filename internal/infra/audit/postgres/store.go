// Package postgres persists the audit trail in a shared Postgres database so
// several desks in one office see the same history.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"civicdesk/internal/audit/core"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/civicdesk?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the sql.Open implementation (tests) and returns a
// restore function.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

// Store is a core.Logger backed by Postgres.
type Store struct {
	db *sql.DB
}

// New connects to dsn (defaultDSN when empty) and ensures the audit table.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	ddl := `CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		occurred_at TIMESTAMPTZ NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		entity TEXT NOT NULL,
		record_ids JSONB NOT NULL,
		outcome TEXT NOT NULL,
		detail TEXT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure audit table: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Record implements core.Logger.
func (s *Store) Record(ctx context.Context, entry core.Entry) error {
	e := core.Normalize(entry)
	ids, err := json.Marshal(e.RecordIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_entries(id, occurred_at, actor, action, entity, record_ids, outcome, detail) VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.OccurredAt.UTC(), e.Actor, string(e.Action), e.Entity, string(ids), e.Outcome, e.Detail)
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
		args = append(args, filter.Entity)
		where = append(where, fmt.Sprintf("entity = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	query := `SELECT id, occurred_at, actor, action, entity, record_ids, outcome, detail FROM audit_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []core.Entry
	for rows.Next() {
		var e core.Entry
		var action, ids string
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.Actor, &action, &e.Entity, &ids, &e.Outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = core.Action(action)
		if err := json.Unmarshal([]byte(ids), &e.RecordIDs); err != nil {
			return nil, fmt.Errorf("decode record_ids: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}

// Close implements core.Logger.
func (s *Store) Close() error { return s.db.Close() }
