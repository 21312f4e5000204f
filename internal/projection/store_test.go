package projection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures edits in emission order as compact strings, which keeps
// ordering assertions readable.
type recorder struct {
	edits []string
}

func (r *recorder) ObjectChanged(item testItem, old, new Path, kind ChangeKind) {
	r.edits = append(r.edits, fmt.Sprintf("%s %s %s->%s", kind, item.ID, old, new))
}

func (r *recorder) SectionChanged(key string, index int, kind SectionChangeKind) {
	r.edits = append(r.edits, fmt.Sprintf("%s %s@%d", kind, key, index))
}

func newTestStore(t *testing.T) (*Store[testItem], *recorder) {
	t.Helper()
	rec := &recorder{}
	st, err := New(Config[testItem]{
		Identity:  testIdentity,
		SortRules: testRules(),
		Grouping:  testGrouping(),
		Listener:  rec,
	})
	require.NoError(t, err)
	return st, rec
}

// sectionOrder returns the identities of every row, section by section, for
// invariant checks.
func sectionOrder(st *Store[testItem]) map[string][]string {
	out := make(map[string][]string)
	for i := 0; i < st.SectionCount(); i++ {
		sec := st.SectionAt(i)
		ids := make([]string, 0, sec.Len())
		for r := 0; r < sec.Len(); r++ {
			ids = append(ids, sec.At(r).ID)
		}
		out[sec.Key()] = ids
	}
	return out
}

func TestNew_ConstructionErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config[testItem]
		want error
	}{
		{
			name: "no identity",
			cfg:  Config[testItem]{SortRules: testRules()},
			want: ErrNoIdentity,
		},
		{
			name: "empty sort rules",
			cfg:  Config[testItem]{Identity: testIdentity},
			want: ErrNoSortRules,
		},
		{
			name: "grouping field mismatch",
			cfg: Config[testItem]{
				Identity:  testIdentity,
				SortRules: testRules(),
				Grouping: &Grouping[testItem]{
					Field: "name",
					Key:   func(it testItem) string { return it.Group },
				},
			},
			want: ErrGroupingMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNew_NilGroupingUsesDefaultSection(t *testing.T) {
	st, err := New(Config[testItem]{
		Identity:  testIdentity,
		SortRules: testRules(),
	})
	require.NoError(t, err)

	st.Reset([]testItem{{ID: "1", Group: "ignored", Order: 1}})
	require.Equal(t, 1, st.SectionCount())
	assert.Equal(t, DefaultSectionKey, st.SectionAt(0).Key())
}

func TestStore_Reset_PopulatesSortedAndSilent(t *testing.T) {
	st, rec := newTestStore(t)

	st.Reset([]testItem{
		{ID: "3", Group: "B", Order: 30},
		{ID: "1", Group: "A", Order: 10},
		{ID: "2", Group: "A", Order: 20},
	})

	assert.Empty(t, rec.edits, "reset is a full population, not an incremental change")
	require.Equal(t, 2, st.SectionCount())
	assert.Equal(t, map[string][]string{
		"A": {"1", "2"},
		"B": {"3"},
	}, sectionOrder(st))
}

func TestStore_Reset_ClearsPriorContents(t *testing.T) {
	st, _ := newTestStore(t)
	st.Reset([]testItem{{ID: "1", Group: "A", Order: 10}})
	st.Reset([]testItem{{ID: "9", Group: "Z", Order: 90}})

	require.Equal(t, 1, st.SectionCount())
	assert.Equal(t, "Z", st.SectionAt(0).Key())
	assert.Equal(t, 1, st.Len())
}

func TestStore_SectionsOrderedCaseInsensitively(t *testing.T) {
	st, _ := newTestStore(t)
	st.Reset([]testItem{
		{ID: "1", Group: "banana", Order: 1},
		{ID: "2", Group: "Apple", Order: 2},
		{ID: "3", Group: "cherry", Order: 3},
	})

	require.Equal(t, 3, st.SectionCount())
	assert.Equal(t, "Apple", st.SectionAt(0).Key())
	assert.Equal(t, "banana", st.SectionAt(1).Key())
	assert.Equal(t, "cherry", st.SectionAt(2).Key())
}

func TestStore_Insert_NewSectionEmitsSectionInsertFirst(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset([]testItem{{ID: "1", Group: "A", Order: 10}})

	st.Insert([]testItem{{ID: "2", Group: "C", Order: 20}})

	require.Equal(t, []string{
		"section_insert C@1",
		"insert 2 (1,0)->(1,0)",
	}, rec.edits)
}

func TestStore_Insert_EmissionOrderMatchesFinalListOrder(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset(nil)

	st.Insert([]testItem{
		{ID: "3", Group: "A", Order: 30},
		{ID: "1", Group: "A", Order: 10},
		{ID: "2", Group: "A", Order: 20},
	})

	require.Equal(t, []string{
		"section_insert A@0",
		"insert 1 (0,0)->(0,0)",
		"insert 2 (0,1)->(0,1)",
		"insert 3 (0,2)->(0,2)",
	}, rec.edits)
}

func TestStore_DeleteThenInsert_PairsIntoMove(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset([]testItem{
		{ID: "1", Group: "A", Order: 10},
		{ID: "2", Group: "A", Order: 20},
	})

	moved := testItem{ID: "2", Group: "A", Order: 5}
	st.Delete([]testItem{moved})
	st.Insert([]testItem{moved})

	require.Equal(t, []string{
		"move 2 (0,1)->(0,0)",
	}, rec.edits, "a paired delete+insert reports exactly one Move, no Delete/Insert pair")
	assert.Equal(t, map[string][]string{"A": {"2", "1"}}, sectionOrder(st))
}

func TestStore_Delete_UnpairedFlushesAsDelete(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset([]testItem{
		{ID: "1", Group: "A", Order: 10},
		{ID: "2", Group: "A", Order: 20},
	})

	st.Delete([]testItem{{ID: "1", Group: "A", Order: 10}})
	st.Insert(nil)

	require.Equal(t, []string{
		"delete 1 (0,0)->(0,0)",
	}, rec.edits)
	assert.Equal(t, map[string][]string{"A": {"2"}}, sectionOrder(st))
}

func TestStore_Delete_LastItemEmitsDeleteThenSectionDelete(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset([]testItem{
		{ID: "1", Group: "B", Order: 10},
		{ID: "2", Group: "A", Order: 20},
	})

	st.Delete([]testItem{{ID: "1", Group: "B", Order: 10}})
	st.Insert(nil)

	require.Equal(t, []string{
		"delete 1 (1,0)->(1,0)",
		"section_delete B@1",
	}, rec.edits, "the item Delete precedes the Section-Delete it caused")
	require.Equal(t, 1, st.SectionCount())
	assert.Equal(t, "A", st.SectionAt(0).Key())
}

func TestStore_Delete_ReverseOrderKeepsIndicesValid(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset([]testItem{
		{ID: "1", Group: "A", Order: 10},
		{ID: "2", Group: "A", Order: 20},
		{ID: "3", Group: "A", Order: 30},
	})

	// Both deletions report indices computed against the pre-transaction
	// layout even though removing row 0 first would have shifted row 2.
	st.Delete([]testItem{
		{ID: "1", Group: "A", Order: 10},
		{ID: "3", Group: "A", Order: 30},
	})
	st.Insert(nil)

	require.Equal(t, []string{
		"delete 3 (0,2)->(0,2)",
		"delete 1 (0,0)->(0,0)",
	}, rec.edits)
	assert.Equal(t, map[string][]string{"A": {"2"}}, sectionOrder(st))
}

func TestStore_DeleteThenInsert_SwappedPairReportsStoredPaths(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset([]testItem{
		{ID: "1", Group: "A", Order: 10},
		{ID: "2", Group: "A", Order: 20},
	})

	// Both items reorder in one batch and arrive carrying their new Order
	// values. Old paths must reflect where each item was stored, not where
	// its new value would sort.
	swapped := []testItem{
		{ID: "2", Group: "A", Order: 5},
		{ID: "1", Group: "A", Order: 25},
	}
	st.Delete(swapped)
	st.Insert(swapped)

	require.Equal(t, []string{
		"move 2 (0,1)->(0,0)",
		"move 1 (0,0)->(0,1)",
	}, rec.edits)
	assert.Equal(t, map[string][]string{"A": {"2", "1"}}, sectionOrder(st))
}

func TestStore_SectionRefilledInOneTransactionEmitsNoSectionEdits(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset([]testItem{{ID: "1", Group: "A", Order: 10}})

	st.Delete([]testItem{{ID: "1", Group: "A", Order: 10}})
	st.Insert([]testItem{{ID: "2", Group: "A", Order: 5}})

	require.Equal(t, []string{
		"insert 2 (0,0)->(0,0)",
		"delete 1 (0,0)->(0,0)",
	}, rec.edits, "a section vacated and refilled in one transaction was never empty to the consumer")
	assert.Equal(t, map[string][]string{"A": {"2"}}, sectionOrder(st))
}

func TestStore_Delete_UnknownIdentityIsNoOp(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset([]testItem{{ID: "1", Group: "A", Order: 10}})

	st.Delete([]testItem{{ID: "ghost", Group: "A", Order: 99}})
	st.Insert(nil)

	assert.Empty(t, rec.edits, "deleting an absent identity emits nothing")
	assert.Equal(t, 1, st.Len())
}

func TestStore_Update_EmitsUpdateAtStablePosition(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset([]testItem{
		{ID: "1", Group: "A", Order: 10},
		{ID: "2", Group: "A", Order: 20},
	})

	st.Update([]testItem{{ID: "2", Group: "A", Order: 25}})

	require.Equal(t, []string{
		"update 2 (0,1)->(0,1)",
	}, rec.edits)
	got, ok := st.ItemAt(Path{Section: 0, Row: 1})
	require.True(t, ok)
	assert.Equal(t, 25, got.Order)
}

func TestStore_Update_EqualNeighborsKeepOriginalRow(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset([]testItem{
		{ID: "1", Group: "A", Order: 10},
		{ID: "2", Group: "A", Order: 10},
		{ID: "3", Group: "A", Order: 10},
	})

	st.Update([]testItem{{ID: "1", Group: "A", Order: 10}})

	require.Equal(t, []string{
		"update 1 (0,0)->(0,0)",
	}, rec.edits, "an update among equal-comparing neighbors must not drift to the tie range's upper bound")
	assert.Equal(t, map[string][]string{"A": {"1", "2", "3"}}, sectionOrder(st))
}

func TestStore_Update_UnknownIdentityDegradesToInsert(t *testing.T) {
	st, rec := newTestStore(t)
	st.Reset([]testItem{{ID: "1", Group: "A", Order: 10}})

	st.Update([]testItem{{ID: "9", Group: "A", Order: 5}})

	require.Equal(t, []string{
		"insert 9 (0,0)->(0,0)",
	}, rec.edits)
	assert.Equal(t, map[string][]string{"A": {"9", "1"}}, sectionOrder(st))
}

func TestStore_SortInvariantAfterMixedOperations(t *testing.T) {
	st, _ := newTestStore(t)
	st.Reset([]testItem{
		{ID: "1", Group: "A", Order: 40},
		{ID: "2", Group: "A", Order: 10},
		{ID: "3", Group: "B", Order: 20},
	})

	st.Update([]testItem{{ID: "2", Group: "A", Order: 15}})
	st.Delete([]testItem{{ID: "3", Group: "B", Order: 20}})
	st.Insert([]testItem{
		{ID: "4", Group: "A", Order: 1},
		{ID: "5", Group: "B", Order: 2},
	})

	seen := make(map[string]int)
	for i := 0; i < st.SectionCount(); i++ {
		sec := st.SectionAt(i)
		require.Positive(t, sec.Len(), "no empty section survives a transaction")
		for r := 0; r < sec.Len(); r++ {
			seen[sec.At(r).ID]++
			if r > 0 {
				assert.LessOrEqual(t, sec.At(r-1).Order, sec.At(r).Order)
			}
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "identity %s must appear in exactly one section", id)
	}
}

func TestStore_ItemAt_OutOfRange(t *testing.T) {
	st, _ := newTestStore(t)
	st.Reset([]testItem{{ID: "1", Group: "A", Order: 10}})

	_, ok := st.ItemAt(Path{Section: 1, Row: 0})
	assert.False(t, ok)
	_, ok = st.ItemAt(Path{Section: 0, Row: 5})
	assert.False(t, ok)
	_, ok = st.ItemAt(Path{Section: -1, Row: 0})
	assert.False(t, ok)
}
