package engine

import "errors"

// Construction and lifecycle errors. Configuration mistakes surface at New,
// never at runtime; the store's own construction errors (no sort rules,
// grouping mismatch) pass through unchanged.
var (
	// ErrNoSource is returned when New is called without a data source.
	ErrNoSource = errors.New("engine: a data source is required")

	// ErrNoMap is returned when New is called without a presentation
	// mapping function.
	ErrNoMap = errors.New("engine: a presentation mapping function is required")

	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("engine: controller is closed")
)
