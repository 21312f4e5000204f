package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/liveset/internal/projection"
)

// RecordingDelegate captures every controller callback in emission order as
// one compact line per event. Tests assert on the lines directly; the
// harness joins them into a golden trace.
//
// Line shapes:
//
//	will_change
//	insert (0,1) x
//	delete (0,0) x
//	update (0,2) x
//	move (0,1)->(1,0) x
//	section_insert B@1
//	section_delete A@0
//	did_change
//
// Format renders the object portion; nil uses fmt.Sprint.
type RecordingDelegate[P any] struct {
	Format func(P) string

	mu     sync.Mutex
	events []string
}

func (d *RecordingDelegate[P]) WillChangeResults() {
	d.record("will_change")
}

func (d *RecordingDelegate[P]) DidChangeResults() {
	d.record("did_change")
}

func (d *RecordingDelegate[P]) DidChangeObject(object P, old, new projection.Path, kind projection.ChangeKind) {
	obj := d.render(object)
	switch kind {
	case projection.ChangeMove:
		d.record(fmt.Sprintf("%s %s->%s %s", kind, old, new, obj))
	case projection.ChangeDelete:
		d.record(fmt.Sprintf("%s %s %s", kind, old, obj))
	default:
		d.record(fmt.Sprintf("%s %s %s", kind, new, obj))
	}
}

func (d *RecordingDelegate[P]) DidChangeSection(key string, index int, kind projection.SectionChangeKind) {
	d.record(fmt.Sprintf("%s %s@%d", kind, key, index))
}

// Events returns a copy of the captured lines.
func (d *RecordingDelegate[P]) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events))
	copy(out, d.events)
	return out
}

// Reset discards the captured lines.
func (d *RecordingDelegate[P]) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

func (d *RecordingDelegate[P]) record(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, line)
}

func (d *RecordingDelegate[P]) render(object P) string {
	if d.Format != nil {
		return d.Format(object)
	}
	return fmt.Sprint(object)
}
