// Package criteria implements named sort and filter operations over in-memory
// collections. Every operation is pure: inputs are never modified and unknown
// criterion names leave a collection unchanged.
package criteria

import (
	"cmp"
	"strings"
	"time"

	"golang.org/x/text/collate"

	"civicdesk/pkg/domain"
)

// Kind classifies a criterion.
type Kind int

const (
	// Sort orders records by one key.
	Sort Kind = iota + 1
	// FilterStatus keeps records whose status or category equals a literal.
	FilterStatus
	// FilterPredicate keeps records satisfying a derived predicate.
	FilterPredicate
)

func (k Kind) String() string {
	switch k {
	case Sort:
		return "sort"
	case FilterStatus:
		return "status"
	case FilterPredicate:
		return "predicate"
	default:
		return "unknown"
	}
}

// Env is the evaluation context handed to comparators and predicates.
type Env struct {
	Now      time.Time
	collator *collate.Collator
}

// CompareText orders strings with the table's caseless, locale-aware collation.
func (e *Env) CompareText(a, b string) int {
	if e.collator == nil {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	}
	return e.collator.CompareString(a, b)
}

// Criterion is one named operation.
type Criterion[T any] struct {
	Name string
	Kind Kind

	compare func(env *Env, a, b T) int
	missing func(T) bool
	desc    bool
	keep    func(env *Env, v T) bool
}

// Descending returns a copy of a sort criterion with the order reversed. Records
// with a missing key stay at the end.
func (c Criterion[T]) Descending() Criterion[T] {
	c.desc = !c.desc
	return c
}

// Named returns a copy under another display name.
func (c Criterion[T]) Named(name string) Criterion[T] {
	c.Name = name
	return c
}

// Matches reports whether v is retained by a filter criterion. Sorts retain everything.
func (c Criterion[T]) Matches(env *Env, v T) bool {
	if c.keep == nil {
		return true
	}
	return c.keep(env, v)
}

func (c Criterion[T]) order(env *Env) func(a, b T) int {
	return func(a, b T) int {
		if c.missing != nil {
			ma, mb := c.missing(a), c.missing(b)
			switch {
			case ma && mb:
				return 0
			case ma:
				return 1
			case mb:
				return -1
			}
		}
		r := c.compare(env, a, b)
		if c.desc {
			return -r
		}
		return r
	}
}

// SortByText orders by a string key, ignoring case.
func SortByText[T any](name string, key func(T) string) Criterion[T] {
	return Criterion[T]{
		Name: name,
		Kind: Sort,
		compare: func(env *Env, a, b T) int {
			return env.CompareText(key(a), key(b))
		},
	}
}

// SortByValue orders by a numeric (or otherwise ordered) key.
func SortByValue[T any, K cmp.Ordered](name string, key func(T) K) Criterion[T] {
	return Criterion[T]{
		Name: name,
		Kind: Sort,
		compare: func(_ *Env, a, b T) int {
			return cmp.Compare(key(a), key(b))
		},
	}
}

// SortByDate orders chronologically; records without a date sort last.
func SortByDate[T any](name string, key func(T) domain.Date) Criterion[T] {
	return Criterion[T]{
		Name: name,
		Kind: Sort,
		compare: func(_ *Env, a, b T) int {
			return key(a).Compare(key(b))
		},
		missing: func(v T) bool { return key(v).IsZero() },
	}
}

// StatusIs keeps records whose field equals value, ignoring case and
// surrounding space.
func StatusIs[T any](name string, field func(T) string, value string) Criterion[T] {
	want := strings.TrimSpace(value)
	return Criterion[T]{
		Name: name,
		Kind: FilterStatus,
		keep: func(_ *Env, v T) bool {
			return strings.EqualFold(strings.TrimSpace(field(v)), want)
		},
	}
}

// Where keeps records satisfying pred.
func Where[T any](name string, pred func(env *Env, v T) bool) Criterion[T] {
	return Criterion[T]{Name: name, Kind: FilterPredicate, keep: pred}
}

// Flag keeps records whose boolean field is set.
func Flag[T any](name string, field func(T) bool) Criterion[T] {
	return Where(name, func(_ *Env, v T) bool { return field(v) })
}

// AgeBetween keeps records whose age on env.Now lies in [min, max]. A negative
// max means no upper bound. Records without a birth date never match.
func AgeBetween[T any](name string, birth func(T) domain.Date, min, max int) Criterion[T] {
	return Where(name, func(env *Env, v T) bool {
		b := birth(v)
		if b.IsZero() {
			return false
		}
		age := b.YearsAt(env.Now)
		return age >= min && (max < 0 || age <= max)
	})
}
