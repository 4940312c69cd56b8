package browser

import (
	"fmt"
	"slices"

	"civicdesk/internal/criteria"
	"civicdesk/pkg/domain"
)

// Metric is one summary card computed over the visible rows.
type Metric struct {
	Label string
	Value string
}

// Descriptor is the per-entity configuration the generic browser is built from.
type Descriptor[T domain.Record] struct {
	Type  domain.EntityType
	Title string
	// Collection is the endpoint path segment and list wrapper key; Singular is
	// the wrapper key of single-record responses.
	Collection string
	Singular   string
	// Columns is the field order used for tables and exports.
	Columns  []string
	Criteria *criteria.Table[T]
	// Haystack returns the text the search box matches against.
	Haystack func(T) string
	Summary  func(rows []T) []Metric
}

// Validate reports configuration mistakes that would otherwise surface as
// empty tables.
func (d Descriptor[T]) Validate() error {
	switch {
	case d.Type == "":
		return fmt.Errorf("descriptor: entity type required")
	case d.Collection == "":
		return fmt.Errorf("descriptor %s: collection required", d.Type)
	case len(d.Columns) == 0:
		return fmt.Errorf("descriptor %s: columns required", d.Type)
	case d.Haystack == nil:
		return fmt.Errorf("descriptor %s: haystack required", d.Type)
	}
	if !slices.Contains(d.Columns, "ID") {
		return fmt.Errorf("descriptor %s: columns must include ID", d.Type)
	}
	return nil
}

func (d Descriptor[T]) singular() string {
	if d.Singular != "" {
		return d.Singular
	}
	return d.Collection
}

func (d Descriptor[T]) criteriaTable() *criteria.Table[T] {
	if d.Criteria != nil {
		return d.Criteria
	}
	return criteria.NewTable[T]()
}
