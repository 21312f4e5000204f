package projection

import "sort"

// Section is an ordered, sorted sequence of items sharing a group key.
//
// A section never reorders itself: the owning store inserts every item at
// its sorted position and removes items by identity. Lookup is always by
// identity, never by value, because an updated copy of an item may no longer
// compare equal by value to the stored copy.
type Section[T any] struct {
	key      string
	items    []T
	identity func(T) string
}

func newSection[T any](key string, identity func(T) string) *Section[T] {
	return &Section[T]{key: key, identity: identity}
}

// Key returns the group key shared by all items in the section.
func (s *Section[T]) Key() string {
	return s.key
}

// Len returns the number of items in the section.
func (s *Section[T]) Len() int {
	return len(s.items)
}

// At returns the item at row i. The caller guarantees i is in range.
func (s *Section[T]) At(i int) T {
	return s.items[i]
}

// insertSorted inserts item preserving sort order and returns its final row
// index. Equal items insert after existing ones, so repeated insertion of
// equal-comparing items is stable. The caller guarantees identity uniqueness
// within the section.
func (s *Section[T]) insertSorted(item T, cmp func(a, b T) int) int {
	row := sort.Search(len(s.items), func(i int) bool {
		return cmp(item, s.items[i]) < 0
	})
	s.items = append(s.items, item)
	copy(s.items[row+1:], s.items[row:])
	s.items[row] = item
	return row
}

// indexOf locates an item by identity. Returns -1 when the identity is not
// present.
func (s *Section[T]) indexOf(id string) int {
	for i, it := range s.items {
		if s.identity(it) == id {
			return i
		}
	}
	return -1
}

// deleteAt removes the item with the given identity and returns its prior
// row index, or -1 when the identity is not present.
func (s *Section[T]) deleteAt(id string) int {
	row := s.indexOf(id)
	if row < 0 {
		return -1
	}
	s.removeRow(row)
	return row
}

// outdatedCopy returns the currently stored (pre-update) copy for the given
// identity. Classification needs the old copy to compare the old stored
// position against the hypothetical new one.
func (s *Section[T]) outdatedCopy(id string) (T, bool) {
	if row := s.indexOf(id); row >= 0 {
		return s.items[row], true
	}
	var zero T
	return zero, false
}

// insertAt places item at an exact row, shifting later rows down. Used only
// to roll back a provisional removal: restoring at the recorded row is exact
// even when equal-comparing neighbors would make a sorted re-insert land
// elsewhere.
func (s *Section[T]) insertAt(row int, item T) {
	s.items = append(s.items, item)
	copy(s.items[row+1:], s.items[row:])
	s.items[row] = item
}

// hypotheticalRange computes, without inserting, the admissible row range
// [lower, upper] where item could sort. The range is wider than one row only
// when neighbors compare equal to item.
func (s *Section[T]) hypotheticalRange(item T, cmp func(a, b T) int) (lower, upper int) {
	lower = sort.Search(len(s.items), func(i int) bool {
		return cmp(item, s.items[i]) <= 0
	})
	upper = sort.Search(len(s.items), func(i int) bool {
		return cmp(item, s.items[i]) < 0
	})
	return lower, upper
}

func (s *Section[T]) removeRow(row int) {
	var zero T
	copy(s.items[row:], s.items[row+1:])
	s.items[len(s.items)-1] = zero
	s.items = s.items[:len(s.items)-1]
}
