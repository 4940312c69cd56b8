// Package audit opens the configured audit trail backend.
package audit

import (
	"context"
	"fmt"

	"civicdesk/internal/audit/core"
	"civicdesk/internal/infra/audit/postgres"
	"civicdesk/internal/infra/audit/sqlite"
)

type (
	// Entry is one audit record.
	Entry = core.Entry
	// Action names an audited operation.
	Action = core.Action
	// Filter narrows List results.
	Filter = core.Filter
	// Logger persists entries.
	Logger = core.Logger
	// MemoryLog keeps entries in process memory.
	MemoryLog = core.MemoryLog
)

const (
	ActionExport = core.ActionExport
	ActionDelete = core.ActionDelete
	ActionEdit   = core.ActionEdit
	ActionCreate = core.ActionCreate

	OutcomeOK     = core.OutcomeOK
	OutcomeFailed = core.OutcomeFailed
)

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the backend. DSN is a file path for sqlite and a connection
// string for postgres.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Open returns the logger described by cfg; memory is the default.
func Open(ctx context.Context, cfg Config) (Logger, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return core.NewMemoryLog(), nil
	case DriverSQLite:
		return sqlite.New(ctx, cfg.DSN)
	case DriverPostgres:
		return postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown audit driver %q", cfg.Driver)
	}
}

// NewMemory returns an in-memory logger.
func NewMemory() *MemoryLog { return core.NewMemoryLog() }
