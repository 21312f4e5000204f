// Package projection implements the sorted sectioned store at the heart of
// liveset.
//
// The store is the single authority for section and item placement: it owns
// the ordered list of sections, routes items to sections by group key,
// performs sorted insert/delete/update, and classifies an updated item as an
// in-place update or a move. All structural edit positions reported to the
// listener are computed here and nowhere else.
//
// ARCHITECTURE:
//
// Single Mutator:
// The store has no internal locking. Exactly one goroutine (the controller's
// serial worker) mutates it; read accessors are only valid between
// transactions. This keeps every operation deterministic and makes the
// move-pairing working set safe to carry across Delete/Insert calls.
//
// Edit Emission Order (one transaction):
// 1. Update edits (position-stable by prior classification)
// 2. Section-Insert edits, each immediately before the first insert or move
//    into the section it introduces
// 3. Insert and Move edits, in comparator order of the inserted items
// 4. Delete edits for deletions never paired with a same-batch insertion
// 5. Section-Delete edits for sections emptied by those deletions
//
// Deletions are recorded into a move-tracking set rather than emitted
// immediately: a deletion followed by a same-batch insertion of the same
// identity collapses into a single Move edit. Insert flushes whatever the
// batch did not pair. Section edits pair the same way: a section vacated
// and refilled within one transaction emits neither Section-Delete nor
// Section-Insert, since the consumer never observed it empty.
//
// INVARIANTS:
//   - Every item belongs to exactly one section
//   - Sections are ordered by key, case-insensitive lexicographic
//   - Section contents are ordered by the active comparator
//   - A section is removed the instant its item count reaches zero
//   - Classify has zero net effect on store state
package projection
