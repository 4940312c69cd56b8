// Package export serializes derived record views to CSV and writes them to a
// blob destination through a background worker, so large collections never
// block the interactive loop.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"civicdesk/pkg/domain"
)

// ContentType is the media type of every export artifact.
const ContentType = "text/csv"

var errNoFields = errors.New("field order required")

// CSV renders a header row of fields followed by one row per record, in the
// given field order. Values holding commas, quotes or newlines are quoted.
// Absent and null values are written as empty strings.
func CSV[T any](records []T, fields []string) ([]byte, error) {
	if len(fields) == 0 {
		return nil, errNoFields
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(fields); err != nil {
		return nil, err
	}
	row := make([]string, len(fields))
	for i, record := range records {
		flat, err := domain.Fields(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		for j, field := range fields {
			row[j] = FormatValue(flat[field])
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatValue renders one cell. Booleans and numbers keep their literal form.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case domain.Date:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}

// FileName returns the default destination key for an entity export on day.
func FileName(entity string, day time.Time) string {
	return fmt.Sprintf("%s-%s.csv", entity, day.Format(domain.DateLayout))
}
