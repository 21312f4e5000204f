package source

import (
	"fmt"
	"strings"

	"github.com/roach88/liveset/internal/projection"
)

// Record is the dynamic row value used by the SQLite source, the scenario
// harness, and the CLI: an identity plus named fields. Statically typed
// domain types can use the projection store directly; Record exists for the
// paths where the schema is only known at runtime.
type Record struct {
	ID     string
	Fields map[string]any
}

// Field returns the named field value, or nil when absent.
func (r Record) Field(name string) any {
	return r.Fields[name]
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, Fields: fields}
}

// RecordIdentity extracts the stable identity of a record.
func RecordIdentity(r Record) string { return r.ID }

// FieldRule builds a sort rule comparing records by one named field.
func FieldRule(field string, ascending bool) projection.SortRule[Record] {
	return projection.SortRule[Record]{
		Field:     field,
		Ascending: ascending,
		Compare: func(a, b Record) int {
			return CompareValues(a.Field(field), b.Field(field))
		},
	}
}

// FieldGrouping builds a grouping keyed by one named field. The field must
// match the first sort rule's field; the projection store enforces this at
// construction.
func FieldGrouping(field string) *projection.Grouping[Record] {
	return &projection.Grouping[Record]{
		Field: field,
		Key: func(r Record) string {
			return ValueString(r.Field(field))
		},
	}
}

// CompareValues orders two dynamic field values. Numeric values compare
// numerically across int/int64/float64; strings lexicographically; bools
// false before true; nil sorts before everything. Mixed or unknown types
// fall back to their string rendering so the order is still total.
func CompareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs)
		}
	}

	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// ValueString renders a field value as a section key.
func ValueString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
