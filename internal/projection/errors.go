package projection

import "errors"

// Construction errors. Both are configuration mistakes the caller must fix;
// neither can occur after New returns.
var (
	// ErrNoSortRules is returned when a store is constructed with an empty
	// sort rule list. A store cannot order items without at least one rule.
	ErrNoSortRules = errors.New("projection: at least one sort rule is required")

	// ErrNoIdentity is returned when no identity extractor is supplied.
	ErrNoIdentity = errors.New("projection: identity extractor is required")

	// ErrGroupingMismatch is returned when the grouping field differs from
	// the field of the first sort rule. Section membership and sort order
	// would disagree, so the combination is rejected up front.
	ErrGroupingMismatch = errors.New("projection: grouping field must match the first sort rule field")
)
