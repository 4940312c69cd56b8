// Package entities declares the browser configuration of every civic record
// type: endpoint names, column order, criteria, search text and summary cards.
package entities

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"civicdesk/internal/browser"
	"civicdesk/internal/criteria"
	"civicdesk/pkg/domain"
)

type options struct {
	now    func() time.Time
	locale language.Tag
}

// Option adjusts descriptor construction.
type Option func(*options)

// WithClock fixes the instant used by age-based criteria and summaries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLocale sets the collation and number formatting locale.
func WithLocale(tag language.Tag) Option { return func(o *options) { o.locale = tag } }

func build(opts []Option) options {
	o := options{now: time.Now, locale: language.English}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func table[T any](o options, list ...criteria.Criterion[T]) *criteria.Table[T] {
	return criteria.NewTable(list...).WithClock(o.now).WithLocale(o.locale)
}

// Entry is one registered entity type with its record type erased.
type Entry struct {
	Type  domain.EntityType
	Title string
	open  func(deps browser.Deps, opts []Option) (browser.View, error)
}

// Open builds a browser for the entity.
func (e Entry) Open(deps browser.Deps, opts ...Option) (browser.View, error) {
	return e.open(deps, opts)
}

func entry[T domain.Record](describe func(...Option) browser.Descriptor[T]) Entry {
	d := describe()
	return Entry{
		Type:  d.Type,
		Title: d.Title,
		open: func(deps browser.Deps, opts []Option) (browser.View, error) {
			b, err := browser.New(describe(opts...), deps)
			if err != nil {
				return nil, err
			}
			return b.View(), nil
		},
	}
}

var registry = []Entry{
	entry(Residents),
	entry(Youth),
	entry(Households),
	entry(Income),
	entry(Expenses),
	entry(Blotter),
	entry(Certificates),
	entry(GovDocs),
	entry(Logbook),
	entry(ProgramProjects),
	entry(Officials),
	entry(Settings),
}

// All returns every entity in menu order.
func All() []Entry { return slices.Clone(registry) }

// Lookup finds an entity by type name or title, ignoring case.
func Lookup(name string) (Entry, bool) {
	name = strings.TrimSpace(name)
	for _, e := range registry {
		if strings.EqualFold(string(e.Type), name) || strings.EqualFold(e.Title, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Names lists the entity type names.
func Names() []string {
	out := make([]string, len(registry))
	for i, e := range registry {
		out[i] = string(e.Type)
	}
	return out
}

// tally counts rows matching each named criterion of t.
func tally[T any](t *criteria.Table[T], rows []T, names ...string) []browser.Metric {
	env := t.Env()
	out := make([]browser.Metric, 0, len(names))
	for _, name := range names {
		c, ok := t.Lookup(name)
		if !ok {
			panic(fmt.Sprintf("entities: summary names unknown criterion %q", name))
		}
		n := 0
		for _, r := range rows {
			if c.Matches(env, r) {
				n++
			}
		}
		out = append(out, browser.Metric{Label: name, Value: fmt.Sprint(n)})
	}
	return out
}

func total[T any](rows []T) browser.Metric {
	return browser.Metric{Label: "Total", Value: fmt.Sprint(len(rows))}
}

func sum[T any](rows []T, f func(T) float64) float64 {
	var s float64
	for _, r := range rows {
		s += f(r)
	}
	return s
}

// amount renders money with grouping separators for the locale.
func amount(o options, v float64) string {
	return message.NewPrinter(o.locale).Sprintf("%.2f", v)
}

func count(o options, n int) string {
	return message.NewPrinter(o.locale).Sprintf("%d", n)
}
