package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fields flattens a record into its wire field map. Numbers are kept as
// json.Number so integer IDs and amounts keep their exact textual form, and dates
// arrive in their canonical string form.
func Fields(record any) (map[string]any, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("flatten record: %w", err)
	}
	return out, nil
}

// FromFields rebuilds a typed record from a field map, rejecting values whose
// type does not match the schema.
func FromFields[T any](fields map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("encode fields: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("decode fields: %w", err)
	}
	return out, nil
}
