package browser

import (
	"context"
	"time"

	"civicdesk/internal/export"
	"civicdesk/internal/selection"
	"civicdesk/pkg/domain"
)

// Status describes the data behind a view.
type Status struct {
	Loading   bool
	Fetching  bool
	Err       error
	UpdatedAt time.Time
	Total     int
	Visible   int
	Selected  int
}

// View is a browser with the record type erased, for front ends that handle
// every entity the same way.
type View interface {
	Entity() domain.EntityType
	Title() string
	Columns() []string
	Criteria() []string

	Load(ctx context.Context) error
	Watch()
	Refresh(ctx context.Context) error
	Status() Status

	SetQuery(q string)
	Query() string
	SetCriterion(name string)
	Criterion() string

	// Rows returns the visible rows as cells in column order.
	Rows() [][]string
	VisibleIDs() []int64
	Summary() []Metric

	Toggle(id int64) bool
	SelectAll()
	ClearSelection()
	Selected() []int64
	Header() selection.HeaderState

	DeleteSelected(ctx context.Context) (int, error)
	Edit(ctx context.Context, id int64, values map[string]string) (patched []string, err error)
	Create(ctx context.Context, values map[string]string) (id int64, err error)
	Export(ctx context.Context, key string) (export.Job, error)

	OnChange(fn func()) (cancel func())
	Close()
}

// View returns b with its record type erased.
func (b *Browser[T]) View() View { return erased[T]{b} }

type erased[T domain.Record] struct{ *Browser[T] }

func (e erased[T]) Entity() domain.EntityType { return e.desc.Type }

func (e erased[T]) Title() string {
	if e.desc.Title != "" {
		return e.desc.Title
	}
	return string(e.desc.Type)
}

func (e erased[T]) Columns() []string { return append([]string(nil), e.desc.Columns...) }

func (e erased[T]) Rows() [][]string { return Cells(e.Records(), e.desc.Columns) }

func (e erased[T]) Edit(ctx context.Context, id int64, values map[string]string) ([]string, error) {
	res, err := e.Browser.Edit(ctx, id, values)
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(res.Patch))
	for k := range res.Patch {
		fields = append(fields, k)
	}
	return fields, nil
}

func (e erased[T]) Create(ctx context.Context, values map[string]string) (int64, error) {
	created, err := e.Browser.Create(ctx, values)
	if err != nil {
		return 0, err
	}
	return created.RecordID(), nil
}

// Cells renders records as table cells in column order.
func Cells[T any](records []T, columns []string) [][]string {
	out := make([][]string, 0, len(records))
	for _, r := range records {
		flat, err := domain.Fields(r)
		row := make([]string, len(columns))
		if err == nil {
			for i, c := range columns {
				row[i] = export.FormatValue(flat[c])
			}
		}
		out = append(out, row)
	}
	return out
}
