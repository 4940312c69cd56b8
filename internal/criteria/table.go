package criteria

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Table is the enumerated set of criteria for one entity type.
type Table[T any] struct {
	names  []string
	byName map[string]Criterion[T]
	now    func() time.Time
	locale language.Tag
}

// NewTable builds a table in display order. Duplicate names panic since tables
// are declared statically.
func NewTable[T any](list ...Criterion[T]) *Table[T] {
	t := &Table[T]{
		byName: make(map[string]Criterion[T], len(list)),
		now:    time.Now,
		locale: language.English,
	}
	for _, c := range list {
		if _, dup := t.byName[c.Name]; dup {
			panic(fmt.Sprintf("criteria: duplicate criterion %q", c.Name))
		}
		t.names = append(t.names, c.Name)
		t.byName[c.Name] = c
	}
	return t
}

// WithClock returns a copy of the table that evaluates derived predicates
// against now().
func (t *Table[T]) WithClock(now func() time.Time) *Table[T] {
	cp := *t
	cp.now = now
	return &cp
}

// WithLocale returns a copy of the table that collates text for tag.
func (t *Table[T]) WithLocale(tag language.Tag) *Table[T] {
	cp := *t
	cp.locale = tag
	return &cp
}

// Names lists criterion names in display order.
func (t *Table[T]) Names() []string { return slices.Clone(t.names) }

// Lookup returns the named criterion.
func (t *Table[T]) Lookup(name string) (Criterion[T], bool) {
	c, ok := t.byName[name]
	return c, ok
}

// Env returns an evaluation context for the current instant. Collators keep
// internal buffers, so each Env gets its own.
func (t *Table[T]) Env() *Env {
	return &Env{
		Now:      t.now(),
		collator: collate.New(t.locale, collate.IgnoreCase, collate.Loose),
	}
}

// Apply returns a new slice holding in transformed by the named criterion. An
// unknown or empty name yields an unchanged copy. Sorts are stable.
func (t *Table[T]) Apply(in []T, name string) []T {
	c, ok := t.byName[name]
	if !ok {
		return slices.Clone(in)
	}
	env := t.Env()
	if c.Kind == Sort {
		out := slices.Clone(in)
		slices.SortStableFunc(out, c.order(env))
		return out
	}
	out := make([]T, 0, len(in))
	for _, v := range in {
		if c.Matches(env, v) {
			out = append(out, v)
		}
	}
	return out
}
