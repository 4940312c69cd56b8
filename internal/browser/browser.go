// Package browser composes the cached collection, criteria, search, selection,
// mutations and export of one entity type into a record browser. The visible
// rows are always criteria then search over the latest cached data, and the
// selection never holds an ID that is not visible.
package browser

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"civicdesk/internal/api"
	"civicdesk/internal/audit"
	"civicdesk/internal/criteria"
	"civicdesk/internal/export"
	"civicdesk/internal/mutation"
	"civicdesk/internal/query"
	"civicdesk/internal/search"
	"civicdesk/internal/selection"
	"civicdesk/pkg/domain"
	"civicdesk/pkg/session"
)

var (
	// ErrNothingSelected is returned by bulk actions on an empty selection.
	ErrNothingSelected = errors.New("no records selected")
	// ErrNotFound is returned when an ID is not in the cached collection.
	ErrNotFound = errors.New("record not found")
	// ErrNoExporter is returned by Export when no worker was configured.
	ErrNoExporter = errors.New("export is not configured")
)

// Deps are the shared collaborators of every browser.
type Deps struct {
	Client   *api.Client
	Pool     *query.Pool
	Exporter *export.Worker
	Audit    audit.Logger
	Log      *zap.Logger
}

// Browser is the record browser for one entity type.
type Browser[T domain.Record] struct {
	desc     Descriptor[T]
	table    *criteria.Table[T]
	cache    *query.Cache[T]
	dispatch *mutation.Dispatcher[T]
	sel      *selection.Set
	exporter *export.Worker
	audit    audit.Logger
	log      *zap.Logger

	// update serializes view recomputation and selection edits; mu guards
	// the fields below.
	update    sync.Mutex
	mu        sync.Mutex
	query     string
	criterion string
	state     query.State[T]
	view      []T
	listeners map[uint64]func()
	nextID    uint64
	closed    bool

	unsubscribe func()
}

// New builds a browser and subscribes it to the shared cache for the entity.
func New[T domain.Record](desc Descriptor[T], deps Deps) (*Browser[T], error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if deps.Client == nil {
		return nil, fmt.Errorf("browser %s: api client required", desc.Type)
	}
	if deps.Pool == nil {
		return nil, fmt.Errorf("browser %s: query pool required", desc.Type)
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	remote := api.NewResource[T](deps.Client, desc.Collection, desc.singular())
	b := &Browser[T]{
		desc:      desc,
		table:     desc.criteriaTable(),
		cache:     query.For[T](deps.Pool, string(desc.Type), remote.List),
		dispatch:  mutation.New[T](string(desc.Type), remote, log),
		sel:       selection.New(),
		exporter:  deps.Exporter,
		audit:     deps.Audit,
		log:       log.With(zap.String("entity", string(desc.Type))),
		listeners: make(map[uint64]func()),
	}
	b.unsubscribe = b.cache.Subscribe(b.apply)
	return b, nil
}

// Descriptor returns the entity configuration.
func (b *Browser[T]) Descriptor() Descriptor[T] { return b.desc }

// Selection exposes the row selection for observers.
func (b *Browser[T]) Selection() *selection.Set { return b.sel }

// Load fetches the collection and waits until the view reflects it.
func (b *Browser[T]) Load(ctx context.Context) error {
	if _, err := b.cache.Fetch(ctx); err != nil {
		return err
	}
	b.apply(b.cache.Snapshot())
	return nil
}

// Watch starts timed refresh of the underlying collection. The pool stops it.
func (b *Browser[T]) Watch() { b.cache.Start() }

// Refresh re-fetches the collection now.
func (b *Browser[T]) Refresh(ctx context.Context) error {
	if err := b.cache.Invalidate(ctx); err != nil {
		return err
	}
	b.apply(b.cache.Snapshot())
	return nil
}

// apply installs a cache state unless a newer one is already showing.
func (b *Browser[T]) apply(state query.State[T]) {
	b.recompute(func() bool {
		if b.closed || state.Version < b.state.Version {
			return false
		}
		b.state = state
		return true
	})
}

// recompute runs edit under mu and, when it reports a change, rebuilds the
// view and prunes the selection to it. Listeners run without locks held.
func (b *Browser[T]) recompute(edit func() bool) {
	b.update.Lock()
	defer b.update.Unlock()
	b.mu.Lock()
	if !edit() {
		b.mu.Unlock()
		return
	}
	b.view = search.Filter(b.query, b.table.Apply(b.state.Data, b.criterion), b.desc.Haystack)
	visible := idsOf(b.view)
	b.mu.Unlock()
	if dropped := b.sel.Prune(visible); len(dropped) > 0 {
		b.log.Debug("selection pruned", zap.Int64s("ids", dropped))
	}
	b.changed()
}

// SetQuery changes the search text.
func (b *Browser[T]) SetQuery(q string) {
	b.recompute(func() bool {
		b.query = q
		return true
	})
}

// Query returns the search text.
func (b *Browser[T]) Query() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// SetCriterion changes the active sort or filter. Unknown names show the
// collection unchanged.
func (b *Browser[T]) SetCriterion(name string) {
	b.recompute(func() bool {
		b.criterion = name
		return true
	})
}

// Criterion returns the active criterion name.
func (b *Browser[T]) Criterion() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.criterion
}

// Criteria lists the criterion names in display order.
func (b *Browser[T]) Criteria() []string { return b.table.Names() }

// Records returns the visible rows.
func (b *Browser[T]) Records() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.view)
}

// VisibleIDs returns the IDs of the visible rows in display order.
func (b *Browser[T]) VisibleIDs() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return idsOf(b.view)
}

// Status summarises the cache state behind the view.
func (b *Browser[T]) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Loading:   b.state.IsLoading(),
		Fetching:  b.state.IsFetching(),
		Err:       b.state.Err,
		UpdatedAt: b.state.UpdatedAt,
		Total:     len(b.state.Data),
		Visible:   len(b.view),
		Selected:  b.sel.Len(),
	}
}

// Summary computes the summary cards over the visible rows.
func (b *Browser[T]) Summary() []Metric {
	if b.desc.Summary == nil {
		return nil
	}
	return b.desc.Summary(b.Records())
}

// Toggle flips id in the selection when it is visible and reports whether it
// is now selected.
func (b *Browser[T]) Toggle(id int64) bool {
	b.update.Lock()
	defer b.update.Unlock()
	if !slices.Contains(b.VisibleIDs(), id) {
		return false
	}
	return b.sel.Toggle(id)
}

// SelectAll selects exactly the visible rows.
func (b *Browser[T]) SelectAll() {
	b.update.Lock()
	defer b.update.Unlock()
	b.sel.SelectAll(b.VisibleIDs())
}

// ClearSelection empties the selection.
func (b *Browser[T]) ClearSelection() { b.sel.Clear() }

// Selected returns the selected IDs in ascending order.
func (b *Browser[T]) Selected() []int64 { return b.sel.IDs() }

// Header returns the select-all checkbox state.
func (b *Browser[T]) Header() selection.HeaderState { return b.sel.State(b.VisibleIDs()) }

// DeleteSelected deletes the selected records in one batch. The collection is
// re-fetched after any response. On failure the selection is left intact so the
// operator can retry.
func (b *Browser[T]) DeleteSelected(ctx context.Context) (int, error) {
	ids := b.sel.IDs()
	if len(ids) == 0 {
		return 0, ErrNothingSelected
	}
	err := b.dispatch.DeleteMany(ctx, ids)
	b.record(ctx, audit.ActionDelete, ids, err)
	b.invalidate(ctx)
	if err != nil {
		return 0, err
	}
	b.sel.Remove(ids...)
	return len(ids), nil
}

// Edit applies form values to the cached record with id and sends the changed
// fields. Nothing is sent when no field changed.
func (b *Browser[T]) Edit(ctx context.Context, id int64, values map[string]string) (mutation.Edit[T], error) {
	loaded, err := b.lookup(id)
	if err != nil {
		return mutation.Edit[T]{}, err
	}
	edited, err := mutation.ApplyValues(loaded, values)
	if err != nil {
		return mutation.Edit[T]{}, err
	}
	return b.EditRecord(ctx, loaded, edited)
}

// EditRecord sends the difference between loaded and edited.
func (b *Browser[T]) EditRecord(ctx context.Context, loaded, edited T) (mutation.Edit[T], error) {
	res, err := b.dispatch.EditOne(ctx, loaded, edited)
	if domain.IsValidationError(err) || errors.Is(err, mutation.ErrIDChanged) {
		return res, err
	}
	if err == nil && len(res.Patch) == 0 {
		return res, nil
	}
	b.record(ctx, audit.ActionEdit, []int64{loaded.RecordID()}, err)
	b.invalidate(ctx)
	return res, err
}

// Create builds a record from form values and posts it.
func (b *Browser[T]) Create(ctx context.Context, values map[string]string) (T, error) {
	var zero T
	record, err := mutation.ApplyValues(zero, values)
	if err != nil {
		return zero, err
	}
	return b.CreateRecord(ctx, record)
}

// CreateRecord posts record.
func (b *Browser[T]) CreateRecord(ctx context.Context, record T) (T, error) {
	created, err := b.dispatch.Create(ctx, record)
	if domain.IsValidationError(err) {
		return created, err
	}
	var ids []int64
	if err == nil {
		ids = []int64{created.RecordID()}
	}
	b.record(ctx, audit.ActionCreate, ids, err)
	if err == nil {
		b.invalidate(ctx)
	}
	return created, err
}

// Export writes the visible rows in column order to key and waits for the
// worker to finish.
func (b *Browser[T]) Export(ctx context.Context, key string) (export.Job, error) {
	if b.exporter == nil {
		return export.Job{}, ErrNoExporter
	}
	req := export.NewRequest(string(b.desc.Type), key, b.Records(), b.desc.Columns)
	return b.exporter.Export(ctx, req)
}

// OnChange registers fn to run after the view or selection changes. fn must not
// change the query or criterion itself.
func (b *Browser[T]) OnChange(fn func()) (cancel func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = fn
	b.mu.Unlock()
	stopSel := b.sel.Subscribe(func([]int64) { fn() })
	return func() {
		stopSel()
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Close detaches the browser from the cache; late responses are ignored.
func (b *Browser[T]) Close() {
	b.unsubscribe()
	b.mu.Lock()
	b.closed = true
	clear(b.listeners)
	b.mu.Unlock()
}

func (b *Browser[T]) changed() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (b *Browser[T]) lookup(id int64) (T, error) {
	for _, r := range b.cache.Snapshot().Data {
		if r.RecordID() == id {
			return r, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s %d: %w", b.desc.Type, id, ErrNotFound)
}

func (b *Browser[T]) invalidate(ctx context.Context) {
	if err := b.Refresh(ctx); err != nil {
		b.log.Warn("refresh after mutation failed", zap.Error(err))
	}
}

func (b *Browser[T]) record(ctx context.Context, action audit.Action, ids []int64, cause error) {
	if b.audit == nil {
		return
	}
	entry := audit.Entry{
		Actor:     session.Actor(ctx),
		Action:    action,
		Entity:    string(b.desc.Type),
		RecordIDs: ids,
		Outcome:   audit.OutcomeOK,
	}
	if cause != nil {
		entry.Outcome = audit.OutcomeFailed
		entry.Detail = api.Message(cause)
	}
	if err := b.audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		b.log.Warn("audit record failed", zap.String("action", string(action)), zap.Error(err))
	}
}

func idsOf[T domain.Record](rows []T) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.RecordID()
	}
	return out
}
