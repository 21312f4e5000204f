package projection

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultSectionKey is the section key used when no grouping is configured.
// Every item then maps to a single section with this key.
const DefaultSectionKey = "default"

// SortRule orders items by one extracted field. Field names the property the
// rule is derived from; Compare returns the usual negative/zero/positive
// tri-state for the field values of a and b, ignoring Ascending (the store
// applies direction).
type SortRule[T any] struct {
	Field     string
	Ascending bool
	Compare   func(a, b T) int
}

// Grouping maps an item to its section key. Field must name the same
// property as the first sort rule, otherwise section membership and sort
// order would disagree; New rejects the combination.
type Grouping[T any] struct {
	Field string
	Key   func(T) string
}

// Config carries everything a store needs at construction.
type Config[T any] struct {
	// Identity extracts the stable logical-entity key that survives
	// mutation. Required.
	Identity func(T) string

	// SortRules is the ordered, non-empty list of sort rules.
	SortRules []SortRule[T]

	// Grouping is optional; nil routes every item to DefaultSectionKey.
	Grouping *Grouping[T]

	// Listener receives edits. Optional; a nil listener discards them.
	Listener Listener[T]

	// KeyReader overrides how the group key is read from an item, leaving
	// Grouping.Field in place for validation. The controller uses this to
	// route key reads through a foreground rendezvous. Optional.
	KeyReader func(T) string
}

type sectionDelete struct {
	key   string
	index int
}

// Store is the sorted sectioned store: the single authority for section and
// item placement. See the package documentation for the mutation and edit
// emission model.
type Store[T any] struct {
	identity func(T) string
	rules    []SortRule[T]
	keyOf    func(T) string
	listener Listener[T]
	collator *collate.Collator

	sections []*Section[T]

	// Move-tracking working set: provisionally deleted items with their
	// prior paths, live between Delete and the Insert that resolves
	// pairing. Section deletions are deferred alongside so the delegate
	// sees item deletes before the section deletes they caused.
	pendingMoves    map[string]pendingDelete[T]
	pendingSections []sectionDelete
}

type pendingDelete[T any] struct {
	item T
	path Path
}

// New validates cfg and constructs an empty store. Configuration mistakes
// (no sort rules, no identity, grouping field not matching the first sort
// rule) fail here and never at runtime.
func New[T any](cfg Config[T]) (*Store[T], error) {
	if cfg.Identity == nil {
		return nil, ErrNoIdentity
	}
	if len(cfg.SortRules) == 0 {
		return nil, ErrNoSortRules
	}
	if cfg.Grouping != nil && cfg.Grouping.Field != cfg.SortRules[0].Field {
		return nil, ErrGroupingMismatch
	}

	keyOf := func(T) string { return DefaultSectionKey }
	if cfg.Grouping != nil {
		keyOf = cfg.Grouping.Key
	}
	if cfg.KeyReader != nil {
		keyOf = cfg.KeyReader
	}

	rules := make([]SortRule[T], len(cfg.SortRules))
	copy(rules, cfg.SortRules)

	return &Store[T]{
		identity:     cfg.Identity,
		rules:        rules,
		keyOf:        keyOf,
		listener:     cfg.Listener,
		collator:     collate.New(language.Und, collate.IgnoreCase),
		pendingMoves: make(map[string]pendingDelete[T]),
	}, nil
}

// compare applies the sort rules in order, honoring each rule's direction.
func (s *Store[T]) compare(a, b T) int {
	for _, r := range s.rules {
		c := r.Compare(a, b)
		if !r.Ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// compareKeys orders section keys case-insensitively, with an exact
// comparison as tie-break so distinct keys always have a fixed order.
func (s *Store[T]) compareKeys(a, b string) int {
	if c := s.collator.CompareString(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Reset drops all sections and repopulates from items. No edits are emitted:
// a reset represents an initial full population, not an incremental change.
func (s *Store[T]) Reset(items []T) {
	s.sections = nil
	s.pendingMoves = make(map[string]pendingDelete[T])
	s.pendingSections = nil

	for _, item := range items {
		sec, _, _ := s.ensureSection(s.keyOf(item), false)
		sec.insertSorted(item, s.compare)
	}
}

// Insert adds items, pairing each against the move-tracking set populated by
// Delete. Items are processed in comparator order so relative emission order
// matches final list order. After all items, deletions the batch never
// paired are flushed as Delete edits, followed by the Section-Delete edits
// they caused.
func (s *Store[T]) Insert(items []T) {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return s.compare(sorted[i], sorted[j]) < 0
	})

	for _, item := range sorted {
		sec, secIdx, _ := s.ensureSection(s.keyOf(item), true)
		row := sec.insertSorted(item, s.compare)
		path := Path{Section: secIdx, Row: row}

		id := s.identity(item)
		if pd, ok := s.pendingMoves[id]; ok {
			delete(s.pendingMoves, id)
			s.emitObject(item, pd.path, path, ChangeMove)
		} else {
			s.emitObject(item, path, path, ChangeInsert)
		}
	}

	s.flushPending()
}

// Delete removes items by identity. An identity not present is a no-op, not
// an error: double-deletes arise from legitimate races between batches.
//
// Every identity is resolved to its current stored path before any removal
// happens, and removals then run in descending path order, so removing one
// item cannot invalidate the resolved path of another in the same call. The
// passed items are only identity carriers: for a reordering update routed
// through the move path they hold post-change field values, which is why the
// stored path, not the item's sort position, drives the ordering. Each
// removal is recorded into move-tracking rather than emitted; Insert
// resolves pairing. A section emptied by a deletion is removed immediately,
// its Section-Delete edit deferred to the same flush.
func (s *Store[T]) Delete(items []T) {
	type removal struct {
		id   string
		item T
		path Path
	}
	removals := make([]removal, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		id := s.identity(item)
		if seen[id] {
			continue
		}
		seen[id] = true
		secIdx, row := s.findByIdentity(id)
		if secIdx < 0 {
			continue
		}
		removals = append(removals, removal{id: id, item: item, path: Path{Section: secIdx, Row: row}})
	}

	sort.Slice(removals, func(i, j int) bool {
		if removals[i].path.Section != removals[j].path.Section {
			return removals[i].path.Section > removals[j].path.Section
		}
		return removals[i].path.Row > removals[j].path.Row
	})

	for _, r := range removals {
		sec := s.sections[r.path.Section]
		sec.removeRow(r.path.Row)
		s.pendingMoves[r.id] = pendingDelete[T]{item: r.item, path: r.path}

		if sec.Len() == 0 {
			s.removeSection(r.path.Section)
			s.pendingSections = append(s.pendingSections, sectionDelete{key: sec.Key(), index: r.path.Section})
		}
	}
}

// Update applies in-place content changes. By prior classification only
// non-reordering updates reach here; reordering updates were redirected to
// the delete/insert move path by the caller. An update for an identity the
// store never knew degrades to a plain insert.
func (s *Store[T]) Update(items []T) {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return s.compare(sorted[i], sorted[j]) < 0
	})

	for _, item := range sorted {
		id := s.identity(item)
		secIdx, row := s.findByIdentity(id)
		if secIdx < 0 {
			sec, idx, _ := s.ensureSection(s.keyOf(item), true)
			newRow := sec.insertSorted(item, s.compare)
			path := Path{Section: idx, Row: newRow}
			s.emitObject(item, path, path, ChangeInsert)
			continue
		}

		sec := s.sections[secIdx]
		sec.removeRow(row)
		// Among equal-comparing neighbors a sorted insertion would drift to
		// the upper bound; re-insert at the original row whenever that row is
		// still admissible so an Update never relocates the item.
		lower, upper := sec.hypotheticalRange(item, s.compare)
		newRow := row
		if lower <= row && row <= upper {
			sec.insertAt(row, item)
		} else {
			newRow = sec.insertSorted(item, s.compare)
		}
		s.emitObject(item,
			Path{Section: secIdx, Row: row},
			Path{Section: secIdx, Row: newRow},
			ChangeUpdate)
	}
}

// SectionCount returns the number of sections.
func (s *Store[T]) SectionCount() int {
	return len(s.sections)
}

// SectionAt returns the section at index i. The caller guarantees i is in
// range.
func (s *Store[T]) SectionAt(i int) *Section[T] {
	return s.sections[i]
}

// ItemAt returns the item at the given path, or false when the path is out
// of range.
func (s *Store[T]) ItemAt(p Path) (T, bool) {
	var zero T
	if p.Section < 0 || p.Section >= len(s.sections) {
		return zero, false
	}
	sec := s.sections[p.Section]
	if p.Row < 0 || p.Row >= sec.Len() {
		return zero, false
	}
	return sec.At(p.Row), true
}

// Len returns the total number of items across all sections.
func (s *Store[T]) Len() int {
	n := 0
	for _, sec := range s.sections {
		n += sec.Len()
	}
	return n
}

// ensureSection returns the section for key, creating it at its sorted
// position when absent. When emit is set, creation produces a Section-Insert
// edit carrying the post-sort index — unless the same key was emptied
// earlier in this transaction, in which case the deferred Section-Delete is
// cancelled instead: a section that is vacated and refilled within one
// transaction was never empty from the consumer's point of view.
func (s *Store[T]) ensureSection(key string, emit bool) (*Section[T], int, bool) {
	idx := sort.Search(len(s.sections), func(i int) bool {
		return s.compareKeys(key, s.sections[i].Key()) <= 0
	})
	if idx < len(s.sections) && s.sections[idx].Key() == key {
		return s.sections[idx], idx, false
	}

	sec := newSection(key, s.identity)
	s.sections = append(s.sections, nil)
	copy(s.sections[idx+1:], s.sections[idx:])
	s.sections[idx] = sec

	if emit && !s.cancelPendingSection(key) {
		s.emitSection(key, idx, SectionInsert)
	}
	return sec, idx, true
}

// cancelPendingSection removes the deferred Section-Delete recorded for key
// in the current transaction, reporting whether one existed.
func (s *Store[T]) cancelPendingSection(key string) bool {
	for i, sd := range s.pendingSections {
		if sd.key == key {
			s.pendingSections = append(s.pendingSections[:i], s.pendingSections[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store[T]) removeSection(idx int) {
	copy(s.sections[idx:], s.sections[idx+1:])
	s.sections[len(s.sections)-1] = nil
	s.sections = s.sections[:len(s.sections)-1]
}

// Contains reports whether the store currently holds the identity.
func (s *Store[T]) Contains(id string) bool {
	sec, _ := s.findByIdentity(id)
	return sec >= 0
}

// findByIdentity scans all sections for the identity. Returns (-1, -1) when
// absent.
func (s *Store[T]) findByIdentity(id string) (int, int) {
	for i, sec := range s.sections {
		if row := sec.indexOf(id); row >= 0 {
			return i, row
		}
	}
	return -1, -1
}

// flushPending emits Delete edits for every deletion the batch never paired
// with an insertion, then the Section-Delete edits those deletions caused,
// and clears both working sets.
func (s *Store[T]) flushPending() {
	if len(s.pendingMoves) > 0 {
		left := make([]pendingDelete[T], 0, len(s.pendingMoves))
		for _, pd := range s.pendingMoves {
			left = append(left, pd)
		}
		// Descending path order, matching the reverse order deletions were
		// applied in.
		sort.Slice(left, func(i, j int) bool {
			if left[i].path.Section != left[j].path.Section {
				return left[i].path.Section > left[j].path.Section
			}
			return left[i].path.Row > left[j].path.Row
		})
		for _, pd := range left {
			s.emitObject(pd.item, pd.path, pd.path, ChangeDelete)
		}
		s.pendingMoves = make(map[string]pendingDelete[T])
	}

	for _, sd := range s.pendingSections {
		s.emitSection(sd.key, sd.index, SectionDelete)
	}
	s.pendingSections = nil
}

func (s *Store[T]) emitObject(item T, old, new Path, kind ChangeKind) {
	if s.listener != nil {
		s.listener.ObjectChanged(item, old, new, kind)
	}
}

func (s *Store[T]) emitSection(key string, index int, kind SectionChangeKind) {
	if s.listener != nil {
		s.listener.SectionChanged(key, index, kind)
	}
}
