package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"civicdesk/pkg/domain"
)

// Resource binds a client to one collection endpoint.
//
//	GET    /{collection}        -> {"<collection>": [...]}
//	GET    /{collection}?id=N   -> {"<singular>": {...}} or {"<collection>": [{...}]}
//	POST   /{collection}        -> {"<singular>": {...}}
//	PATCH  /{collection}/{id}   -> updated (partial) entity
//	DELETE /{collection}        body {"ids": [...]} -> 204 or JSON
type Resource[T domain.Record] struct {
	client     *Client
	collection string
	singular   string
}

// NewResource binds c to a collection.
func NewResource[T domain.Record](c *Client, collection, singular string) *Resource[T] {
	return &Resource[T]{client: c, collection: collection, singular: singular}
}

// Collection returns the endpoint and response key.
func (r *Resource[T]) Collection() string { return r.collection }

// List fetches the whole collection.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var envelope map[string]json.RawMessage
	if err := r.client.do(ctx, "api.list", http.MethodGet, r.collection, nil, nil, &envelope); err != nil {
		return nil, err
	}
	raw, ok := envelope[r.collection]
	if !ok {
		return nil, fmt.Errorf("list %s: response missing %q", r.collection, r.collection)
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.collection, err)
	}
	return out, nil
}

// Get fetches one record through the ?id= narrowing.
func (r *Resource[T]) Get(ctx context.Context, id int64) (T, error) {
	var zero T
	var envelope map[string]json.RawMessage
	query := url.Values{"id": []string{strconv.FormatInt(id, 10)}}
	if err := r.client.do(ctx, "api.get", http.MethodGet, r.collection, query, nil, &envelope); err != nil {
		return zero, err
	}
	if raw, ok := envelope[r.singular]; ok && r.singular != r.collection {
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return zero, fmt.Errorf("decode %s: %w", r.singular, err)
		}
		return out, nil
	}
	if raw, ok := envelope[r.collection]; ok {
		// Some endpoints answer with a one-element list, others with the bare object
		// under a key shared by singular and plural names.
		var list []T
		if err := json.Unmarshal(raw, &list); err == nil {
			for _, rec := range list {
				if rec.RecordID() == id {
					return rec, nil
				}
			}
			return zero, statusError(http.MethodGet, r.collection, http.StatusNotFound, fmt.Sprintf("%s %d not found", r.singular, id))
		}
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return zero, fmt.Errorf("decode %s: %w", r.collection, err)
		}
		return out, nil
	}
	return zero, fmt.Errorf("get %s: response missing %q", r.collection, r.singular)
}

// Create posts a full record without its ID and returns it with the assigned ID.
func (r *Resource[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	body, err := domain.Fields(record)
	if err != nil {
		return zero, err
	}
	delete(body, "ID")
	var envelope map[string]json.RawMessage
	if err := r.client.do(ctx, "api.create", http.MethodPost, r.collection, nil, body, &envelope); err != nil {
		return zero, err
	}
	raw, ok := envelope[r.singular]
	if !ok {
		return zero, fmt.Errorf("create %s: response missing %q", r.collection, r.singular)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("decode %s: %w", r.singular, err)
	}
	return out, nil
}

// Update sends a partial record. The response is the updated (possibly partial)
// entity as a field map.
func (r *Resource[T]) Update(ctx context.Context, id int64, patch map[string]any) (map[string]any, error) {
	path := r.collection + "/" + strconv.FormatInt(id, 10)
	var out map[string]any
	if err := r.client.do(ctx, "api.update", http.MethodPatch, path, nil, patch, &out); err != nil {
		return nil, err
	}
	if inner, ok := out[r.singular].(map[string]any); ok && len(out) == 1 {
		return inner, nil
	}
	return out, nil
}

// DeleteMany removes records in one batch call. The backend does not promise
// atomicity, so callers must re-fetch afterwards whatever the outcome.
func (r *Resource[T]) DeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string][]int64{"ids": ids}
	return r.client.do(ctx, "api.delete", http.MethodDelete, r.collection, nil, body, nil)
}
