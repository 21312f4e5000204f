// Package compiler turns CUE projection definitions into the typed
// configuration the engine consumes: a query, an ordered sort field list,
// and an optional grouping. CUE evaluates defaults and structural
// constraints; Validate applies the semantic rules CUE cannot express.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/liveset/internal/projection"
	"github.com/roach88/liveset/internal/source"
)

// SortField is one entry of a definition's sort rule list.
type SortField struct {
	Field     string
	Ascending bool
}

// Definition is one compiled projection definition.
//
// A definition in CUE looks like:
//
//	projection: tasks: {
//		query: "SELECT * FROM tasks"
//		table: "tasks"
//		sort: [{field: "due"}, {field: "title", ascending: false}]
//		group_by: "due"
//	}
type Definition struct {
	// Name is the struct label the definition was declared under.
	Name string

	// Query is the SQL statement producing the initial result set.
	Query string

	// Table is the table change notifications refer to; defaults to Name.
	Table string

	// IDColumn names the identity column; defaults to "id".
	IDColumn string

	// Sort is the ordered sort field list, never empty after Validate.
	Sort []SortField

	// GroupBy names the sectioning field; empty means a single section.
	GroupBy string
}

// CompileDefinition parses a CUE value into a Definition. The value should
// be the definition struct itself:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	def, err := CompileDefinition(v.LookupPath(cue.ParsePath("projection.tasks")))
func CompileDefinition(v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &Definition{IDColumn: "id"}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}

	queryVal := v.LookupPath(cue.ParsePath("query"))
	if !queryVal.Exists() {
		return nil, &CompileError{
			Field:   "query",
			Message: "query is required",
			Pos:     v.Pos(),
		}
	}
	query, err := queryVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	def.Query = query

	def.Table = def.Name
	if tableVal := v.LookupPath(cue.ParsePath("table")); tableVal.Exists() {
		if def.Table, err = tableVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if idVal := v.LookupPath(cue.ParsePath("id_column")); idVal.Exists() {
		if def.IDColumn, err = idVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if def.Sort, err = parseSort(v); err != nil {
		return nil, err
	}
	if len(def.Sort) == 0 {
		return nil, &CompileError{
			Field:   "sort",
			Message: "at least one sort field is required",
			Pos:     v.Pos(),
		}
	}

	if groupVal := v.LookupPath(cue.ParsePath("group_by")); groupVal.Exists() {
		if def.GroupBy, err = groupVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	return def, nil
}

// parseSort reads the sort list. Each entry is either a bare field name or
// a struct with an optional ascending flag (default true).
func parseSort(v cue.Value) ([]SortField, error) {
	sortVal := v.LookupPath(cue.ParsePath("sort"))
	if !sortVal.Exists() {
		return nil, nil
	}

	iter, err := sortVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []SortField
	for iter.Next() {
		entry := iter.Value()

		// Shorthand: a bare string is an ascending sort on that field.
		if name, err := entry.String(); err == nil {
			fields = append(fields, SortField{Field: name, Ascending: true})
			continue
		}

		fieldVal := entry.LookupPath(cue.ParsePath("field"))
		if !fieldVal.Exists() {
			return nil, &CompileError{
				Field:   "sort",
				Message: "sort entry requires a field name",
				Pos:     entry.Pos(),
			}
		}
		name, err := fieldVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		sf := SortField{Field: name, Ascending: true}
		if ascVal := entry.LookupPath(cue.ParsePath("ascending")); ascVal.Exists() {
			if sf.Ascending, err = ascVal.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		fields = append(fields, sf)
	}

	return fields, nil
}

// Rules converts the sort fields into record sort rules.
func (d *Definition) Rules() []projection.SortRule[source.Record] {
	rules := make([]projection.SortRule[source.Record], len(d.Sort))
	for i, sf := range d.Sort {
		rules[i] = source.FieldRule(sf.Field, sf.Ascending)
	}
	return rules
}

// Grouping returns the record grouping, or nil for an ungrouped definition.
func (d *Definition) Grouping() *projection.Grouping[source.Record] {
	if d.GroupBy == "" {
		return nil
	}
	return source.FieldGrouping(d.GroupBy)
}

// CompileError is a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
