package compiler

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedType    = "E100" // input is not a Definition
	ErrQueryEmpty         = "E101" // query is required
	ErrNoSortFields       = "E102" // at least one sort field required
	ErrSortFieldEmpty     = "E103" // sort field name must be non-empty
	ErrDuplicateSortField = "E104" // sort field listed twice
	ErrGroupByMismatch    = "E105" // group_by must equal the first sort field
	ErrInvalidName        = "E106" // definition name not an identifier
	ErrIDColumnEmpty      = "E107" // id_column must be non-empty
)

// ValidationError is one schema validation finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// namePattern matches a lowercase identifier: how definitions are labelled
// in CUE and addressed on the command line.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate applies the semantic rules a compiled definition must satisfy.
// Returns all findings rather than failing fast.
func Validate(v any) []ValidationError {
	var def *Definition
	switch d := v.(type) {
	case *Definition:
		def = d
	case Definition:
		def = &d
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}

	var errs []ValidationError

	if !namePattern.MatchString(def.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("definition name %q must be a lowercase identifier", def.Name),
			Code:    ErrInvalidName,
		})
	}

	if strings.TrimSpace(def.Query) == "" {
		errs = append(errs, ValidationError{
			Field:   "query",
			Message: "query is required and must be non-empty",
			Code:    ErrQueryEmpty,
		})
	}

	if strings.TrimSpace(def.IDColumn) == "" {
		errs = append(errs, ValidationError{
			Field:   "id_column",
			Message: "id_column must be non-empty",
			Code:    ErrIDColumnEmpty,
		})
	}

	if len(def.Sort) == 0 {
		errs = append(errs, ValidationError{
			Field:   "sort",
			Message: "at least one sort field is required",
			Code:    ErrNoSortFields,
		})
	}

	seen := make(map[string]bool)
	for i, sf := range def.Sort {
		if strings.TrimSpace(sf.Field) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("sort[%d].field", i),
				Message: "sort field name must be non-empty",
				Code:    ErrSortFieldEmpty,
			})
			continue
		}
		if seen[sf.Field] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("sort[%d].field", i),
				Message: fmt.Sprintf("duplicate sort field %q", sf.Field),
				Code:    ErrDuplicateSortField,
			})
		}
		seen[sf.Field] = true
	}

	// Section membership is only well-defined when sections stay contiguous
	// under the sort order, which requires grouping on the primary field.
	if def.GroupBy != "" && len(def.Sort) > 0 && def.GroupBy != def.Sort[0].Field {
		errs = append(errs, ValidationError{
			Field:   "group_by",
			Message: fmt.Sprintf("group_by %q must equal the first sort field %q", def.GroupBy, def.Sort[0].Field),
			Code:    ErrGroupByMismatch,
		})
	}

	return errs
}
