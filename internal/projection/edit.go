package projection

import "fmt"

// Path identifies a row position as (section index, row index).
type Path struct {
	Section int `json:"section"`
	Row     int `json:"row"`
}

// String renders a path as "(section,row)" for logs and assertion messages.
func (p Path) String() string {
	return fmt.Sprintf("(%d,%d)", p.Section, p.Row)
}

// ChangeKind identifies the kind of an object edit.
type ChangeKind int

const (
	// ChangeInsert reports a new row. Old and new path are equal.
	ChangeInsert ChangeKind = iota + 1
	// ChangeDelete reports a removed row at its pre-deletion path.
	ChangeDelete
	// ChangeUpdate reports changed content at a stable position.
	ChangeUpdate
	// ChangeMove reports a delete+insert pair collapsed into one atomic edit.
	// Old and new path differ.
	ChangeMove
)

// String returns the lowercase kind name used in traces and scenarios.
func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeDelete:
		return "delete"
	case ChangeUpdate:
		return "update"
	case ChangeMove:
		return "move"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// SectionChangeKind identifies the kind of a section edit.
type SectionChangeKind int

const (
	// SectionInsert reports a section created at its post-sort index.
	SectionInsert SectionChangeKind = iota + 1
	// SectionDelete reports a section removed because it became empty.
	SectionDelete
)

// String returns the lowercase kind name used in traces and scenarios.
func (k SectionChangeKind) String() string {
	switch k {
	case SectionInsert:
		return "section_insert"
	case SectionDelete:
		return "section_delete"
	default:
		return fmt.Sprintf("SectionChangeKind(%d)", int(k))
	}
}

// Classification is the result of Store.Classify for one updated item.
type Classification int

const (
	// ClassInsert means the store has no current copy of the identity.
	ClassInsert Classification = iota + 1
	// ClassUpdate means content changed but the sorted position is stable.
	ClassUpdate
	// ClassMove means the item lands in a different section or row.
	ClassMove
)

// String returns the lowercase classification name.
func (c Classification) String() string {
	switch c {
	case ClassInsert:
		return "insert"
	case ClassUpdate:
		return "update"
	case ClassMove:
		return "move"
	default:
		return fmt.Sprintf("Classification(%d)", int(c))
	}
}

// Listener receives structural edits as the store applies a transaction.
//
// The store holds the listener as a plain non-owning capability - it never
// owns its controller, avoiding a reference cycle between the two.
type Listener[T any] interface {
	// ObjectChanged reports one Insert/Delete/Update/Move edit.
	// For Insert and Delete, old and new are equal.
	ObjectChanged(item T, old, new Path, kind ChangeKind)

	// SectionChanged reports one Section-Insert or Section-Delete edit.
	SectionChanged(key string, index int, kind SectionChangeKind)
}
