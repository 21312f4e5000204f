package source

import "context"

// Action identifies the kind of a change notification.
type Action int

const (
	// ActionCreate reports a newly created item.
	ActionCreate Action = iota + 1
	// ActionUpdate reports a mutated item; the carried snapshot is the
	// post-mutation state.
	ActionUpdate
	// ActionDelete reports a removed item.
	ActionDelete
)

// String returns the lowercase action name used in scenario files.
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is one raw change notification. Item is deliberately untyped:
// consumers filter to their domain type by exact type assertion and ignore
// everything else.
type Change struct {
	Action Action
	Item   any
}

// Batch is one delivery of change notifications. All changes in a batch are
// reconciled as a single transaction by the consumer.
type Batch []Change

// Subscription is the explicit handle returned by Subscribe. It is owned by
// the subscriber and torn down deterministically with Close; there is no
// process-wide broadcast channel.
type Subscription interface {
	Close() error
}

// Query is the inbound collaborator interface the controller consumes.
type Query[T any] interface {
	// Execute runs the query and returns the current item set in source
	// order. Each returned item is an independent snapshot.
	Execute(ctx context.Context) ([]T, error)

	// Matches reports whether an item satisfies the query's own predicate.
	// Consumers apply it to create/update notifications before admitting
	// them.
	Matches(item T) bool

	// Subscribe registers fn for future change batches. fn is invoked once
	// per published batch, in publish order.
	Subscribe(fn func(Batch)) (Subscription, error)
}
