// Package core defines the audit trail record and the logger contract.
package core

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action names a user-initiated operation worth auditing.
type Action string

const (
	ActionExport Action = "export"
	ActionDelete Action = "delete"
	ActionEdit   Action = "edit"
	ActionCreate Action = "create"
)

// Outcome values.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Entry captures who did what to which records.
type Entry struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Actor      string    `json:"actor"`
	Action     Action    `json:"action"`
	Entity     string    `json:"entity"`
	RecordIDs  []int64   `json:"record_ids,omitempty"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
}

// Filter narrows List results. Zero values match everything; Limit <= 0 means
// no limit. Results are newest first.
type Filter struct {
	Entity string
	Action Action
	Limit  int
}

// Matches reports whether e passes the entity and action filters.
func (f Filter) Matches(e Entry) bool {
	return (f.Entity == "" || f.Entity == e.Entity) && (f.Action == "" || f.Action == e.Action)
}

// Logger persists audit entries.
type Logger interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Close() error
}

// Normalize fills the ID and timestamp when absent.
func Normalize(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeOK
	}
	e.RecordIDs = slices.Clone(e.RecordIDs)
	return e
}

// MemoryLog keeps entries in process memory.
type MemoryLog struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryLog returns an empty in-memory log.
func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

// Record implements Logger.
func (m *MemoryLog) Record(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Normalize(entry))
	return nil
}

// List implements Logger.
func (m *MemoryLog) List(_ context.Context, filter Filter) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if !filter.Matches(e) {
			continue
		}
		e.RecordIDs = slices.Clone(e.RecordIDs)
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Close implements Logger.
func (m *MemoryLog) Close() error { return nil }
