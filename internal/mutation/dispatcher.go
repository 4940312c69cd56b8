// Package mutation sends creates, edits and batch deletes to the remote store.
// It validates records before any request and transmits only changed fields on
// edit. Callers refresh their cached collections afterwards.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"civicdesk/pkg/domain"
)

// ErrIDChanged is returned when an edit targets a different record than was loaded.
var ErrIDChanged = errors.New("record ID cannot change")

// Remote is the subset of the collection endpoint the dispatcher needs.
type Remote[T domain.Record] interface {
	Create(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, id int64, patch map[string]any) (map[string]any, error)
	DeleteMany(ctx context.Context, ids []int64) error
}

// Dispatcher sends mutations for one entity type.
type Dispatcher[T domain.Record] struct {
	entity string
	remote Remote[T]
	log    *zap.Logger
}

// New returns a dispatcher for entity backed by remote.
func New[T domain.Record](entity string, remote Remote[T], log *zap.Logger) *Dispatcher[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher[T]{entity: entity, remote: remote, log: log.With(zap.String("entity", entity))}
}

// Edit is the outcome of EditOne.
type Edit[T domain.Record] struct {
	Record T
	// Patch is what was sent; empty when nothing changed and no request was made.
	Patch map[string]any
}

// DeleteMany deletes ids in one batch. Duplicate IDs are collapsed.
func (d *Dispatcher[T]) DeleteMany(ctx context.Context, ids []int64) error {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return nil
	}
	if err := d.remote.DeleteMany(ctx, ids); err != nil {
		d.log.Warn("batch delete failed", zap.Int64s("ids", ids), zap.Error(err))
		return err
	}
	d.log.Info("batch delete", zap.Int64s("ids", ids))
	return nil
}

// EditOne validates edited and sends the fields that differ from loaded. The
// returned record is loaded overlaid with the patch and whatever the server
// echoed back.
func (d *Dispatcher[T]) EditOne(ctx context.Context, loaded, edited T) (Edit[T], error) {
	if loaded.RecordID() != edited.RecordID() {
		return Edit[T]{}, fmt.Errorf("edit %s %d: %w", d.entity, loaded.RecordID(), ErrIDChanged)
	}
	if err := domain.Validate(edited); err != nil {
		return Edit[T]{}, err
	}
	patch, err := ComputePatch(loaded, edited)
	if err != nil {
		return Edit[T]{}, err
	}
	if len(patch) == 0 {
		return Edit[T]{Record: loaded, Patch: patch}, nil
	}
	echoed, err := d.remote.Update(ctx, loaded.RecordID(), patch)
	if err != nil {
		d.log.Warn("edit failed", zap.Int64("id", loaded.RecordID()), zap.Error(err))
		return Edit[T]{}, err
	}
	merged, err := merge(loaded, patch, echoed)
	if err != nil {
		// The server accepted the patch; fall back to the local edit.
		d.log.Debug("could not merge edit response", zap.Error(err))
		merged = edited
	}
	d.log.Info("edited record", zap.Int64("id", loaded.RecordID()), zap.Int("fields", len(patch)))
	return Edit[T]{Record: merged, Patch: patch}, nil
}

// Create validates record and posts it. The returned record carries the assigned ID.
func (d *Dispatcher[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	if err := domain.Validate(record); err != nil {
		return zero, err
	}
	created, err := d.remote.Create(ctx, record)
	if err != nil {
		d.log.Warn("create failed", zap.Error(err))
		return zero, err
	}
	d.log.Info("created record", zap.Int64("id", created.RecordID()))
	return created, nil
}

func merge[T any](loaded T, patch, echoed map[string]any) (T, error) {
	fields, err := domain.Fields(loaded)
	if err != nil {
		return loaded, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	for k, v := range echoed {
		if _, known := fields[k]; known && k != "ID" {
			fields[k] = v
		}
	}
	return domain.FromFields[T](fields)
}
