package projection

// Classify determines, without net effect on store state, whether applying
// the updated item would be a plain insert, an in-place update, or a move.
//
// The decision needs the hypothetical sorted position of the new copy with
// the old copy out of the way, so the old copy is provisionally removed,
// the position computed, and the old copy restored at its exact prior row.
//
// Results:
//   - ClassInsert: the store holds no current copy of the identity
//   - ClassUpdate: same section, same row - content changed in place
//   - ClassMove: different row, or a different (possibly not yet existing)
//     target section because the group key changed
func (s *Store[T]) Classify(item T) Classification {
	id := s.identity(item)
	secIdx, row := s.findByIdentity(id)
	if secIdx < 0 {
		return ClassInsert
	}

	sec := s.sections[secIdx]
	outdated, ok := sec.outdatedCopy(id)
	if !ok {
		return ClassInsert
	}

	newKey := s.keyOf(item)
	if newKey != sec.Key() {
		// Group key changed: the item leaves its section regardless of
		// where it would sort in the target.
		return ClassMove
	}

	sec.removeRow(row)
	lower, upper := sec.hypotheticalRange(item, s.compare)
	sec.insertAt(row, outdated)

	// With the old copy out of the way, the new copy may sort anywhere in
	// [lower, upper]; the range spans more than one row only across
	// equal-comparing neighbors. If the original row is admissible the
	// position is stable.
	if lower <= row && row <= upper {
		return ClassUpdate
	}
	return ClassMove
}
