package mutation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"civicdesk/pkg/domain"
)

// ComputePatch returns the fields of edited whose wire value differs from
// loaded. Both records are flattened first, so dates and numbers compare in
// their canonical serialized form. The ID is never part of a patch.
func ComputePatch[T any](loaded, edited T) (map[string]any, error) {
	before, err := domain.Fields(loaded)
	if err != nil {
		return nil, err
	}
	after, err := domain.Fields(edited)
	if err != nil {
		return nil, err
	}
	patch := make(map[string]any)
	for k, v := range after {
		if k == "ID" {
			continue
		}
		if old, ok := before[k]; !ok || !reflect.DeepEqual(old, v) {
			patch[k] = v
		}
	}
	return patch, nil
}

var dateType = reflect.TypeOf(domain.Date{})

// ApplyValues returns a copy of record with string form values converted to
// each field's type. Keys are wire field names. Blank values clear optional
// fields and dates; unknown fields and unparsable values are errors.
func ApplyValues[T any](record T, values map[string]string) (T, error) {
	out := record
	rv := reflect.ValueOf(&out).Elem()
	if rv.Kind() != reflect.Struct {
		return record, fmt.Errorf("apply values: %T is not a struct", record)
	}
	index := fieldIndex(rv.Type())
	for name, raw := range values {
		i, ok := index[name]
		if !ok {
			return record, domain.ValidationError{Field: name, Reason: "is not a field of this record"}
		}
		if name == "ID" {
			return record, domain.ValidationError{Field: name, Reason: "cannot be changed"}
		}
		if err := setField(rv.Field(i), strings.TrimSpace(raw)); err != nil {
			return record, domain.ValidationError{Field: name, Reason: err.Error()}
		}
	}
	return out, nil
}

func fieldIndex(t reflect.Type) map[string]int {
	index := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			if n, _, _ := strings.Cut(tag, ","); n != "" && n != "-" {
				name = n
			}
		}
		index[name] = i
	}
	return index
}

func setField(f reflect.Value, raw string) error {
	if f.Type() == dateType {
		d, err := domain.ParseDate(raw)
		if err != nil {
			return fmt.Errorf("must be a date (YYYY-MM-DD)")
		}
		f.Set(reflect.ValueOf(d))
		return nil
	}
	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Bool:
		if raw == "" {
			f.SetBool(false)
			return nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("must be true or false")
		}
		f.SetBool(b)
	case reflect.Int, reflect.Int32, reflect.Int64:
		if raw == "" {
			f.SetInt(0)
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("must be a whole number")
		}
		f.SetInt(n)
	case reflect.Float32, reflect.Float64:
		if raw == "" {
			f.SetFloat(0)
			return nil
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		f.SetFloat(n)
	case reflect.Pointer:
		if raw == "" {
			f.Set(reflect.Zero(f.Type()))
			return nil
		}
		v := reflect.New(f.Type().Elem())
		if err := setField(v.Elem(), raw); err != nil {
			return err
		}
		f.Set(v)
	default:
		return fmt.Errorf("unsupported field type %s", f.Type())
	}
	return nil
}
