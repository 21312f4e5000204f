package harness

import (
	"fmt"
	"strings"
)

// Evaluate checks every assertion against the result, recording all
// failures rather than stopping at the first.
func Evaluate(assertions []Assertion, result *Result) {
	for i, a := range assertions {
		switch a.Type {
		case AssertEditContains:
			assertEditContains(i, &a, result)
		case AssertEditOrder:
			assertEditOrder(i, &a, result)
		case AssertEditCount:
			assertEditCount(i, &a, result)
		case AssertFinalOrder:
			assertFinalOrder(i, &a, result)
		case AssertSectionKeys:
			assertSectionKeys(i, &a, result)
		case AssertBracketPairing:
			assertBracketPairing(i, result)
		}
	}
}

func assertEditContains(index int, a *Assertion, r *Result) {
	for _, e := range r.Events {
		if e == a.Edit {
			return
		}
	}
	r.AddError(fmt.Sprintf("assertions[%d]: edit %q not found in trace", index, a.Edit))
}

// assertEditOrder requires the expected edits to appear as a subsequence of
// the trace: other edits may be interleaved, but the relative order must
// hold.
func assertEditOrder(index int, a *Assertion, r *Result) {
	next := 0
	for _, e := range r.Events {
		if next < len(a.Edits) && e == a.Edits[next] {
			next++
		}
	}
	if next < len(a.Edits) {
		r.AddError(fmt.Sprintf("assertions[%d]: edit %q missing or out of order", index, a.Edits[next]))
	}
}

func assertEditCount(index int, a *Assertion, r *Result) {
	n := 0
	for _, e := range r.Events {
		if e == a.Edit {
			n++
		}
	}
	if n != a.Count {
		r.AddError(fmt.Sprintf("assertions[%d]: edit %q appeared %d times, want %d", index, a.Edit, n, a.Count))
	}
}

func assertFinalOrder(index int, a *Assertion, r *Result) {
	for key, want := range a.Sections {
		got, ok := r.Sections[key]
		if !ok {
			r.AddError(fmt.Sprintf("assertions[%d]: section %q not present in final layout", index, key))
			continue
		}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			r.AddError(fmt.Sprintf("assertions[%d]: section %q holds [%s], want [%s]",
				index, key, strings.Join(got, " "), strings.Join(want, " ")))
		}
	}
}

func assertSectionKeys(index int, a *Assertion, r *Result) {
	if strings.Join(r.SectionKeys, ",") != strings.Join(a.Keys, ",") {
		r.AddError(fmt.Sprintf("assertions[%d]: section keys [%s], want [%s]",
			index, strings.Join(r.SectionKeys, " "), strings.Join(a.Keys, " ")))
	}
}

// assertBracketPairing verifies the transaction bracket protocol: every
// will_change is closed by a did_change before the next opens, no edit
// appears outside a bracket, and no bracket is empty.
func assertBracketPairing(index int, r *Result) {
	open := false
	edits := 0
	for _, e := range r.Events {
		switch e {
		case "will_change":
			if open {
				r.AddError(fmt.Sprintf("assertions[%d]: nested will_change", index))
				return
			}
			open = true
			edits = 0
		case "did_change":
			if !open {
				r.AddError(fmt.Sprintf("assertions[%d]: did_change without will_change", index))
				return
			}
			if edits == 0 {
				r.AddError(fmt.Sprintf("assertions[%d]: empty transaction bracket", index))
				return
			}
			open = false
		default:
			if !open {
				r.AddError(fmt.Sprintf("assertions[%d]: edit %q outside transaction bracket", index, e))
				return
			}
			edits++
		}
	}
	if open {
		r.AddError(fmt.Sprintf("assertions[%d]: unclosed will_change", index))
	}
}
