package engine

import "context"

// Executor marshals work onto the foreground/presentation context.
//
// The worker uses Async for delegate callbacks (queued in emission order,
// never reordered) and Sync for the bounded group-key rendezvous. The
// contract that makes the rendezvous deadlock-free by construction: only the
// worker ever blocks in Sync; the foreground never blocks on the worker.
type Executor interface {
	// Async enqueues fn for execution on the foreground and returns
	// immediately. Submissions execute in FIFO order.
	Async(fn func())

	// Sync executes fn on the foreground and blocks the caller until it
	// has run.
	Sync(fn func())
}

// DirectExecutor runs everything inline on the calling goroutine. It is the
// default, and the right choice for synchronous test mode where the calling
// context is the foreground.
type DirectExecutor struct{}

// Async runs fn immediately.
func (DirectExecutor) Async(fn func()) { fn() }

// Sync runs fn immediately.
func (DirectExecutor) Sync(fn func()) { fn() }

// Loop is a channel-based foreground run loop. The goroutine that calls Run
// becomes the foreground context: it executes submitted work in FIFO order
// until the context is cancelled.
type Loop struct {
	tasks *workQueue[func()]
}

// NewLoop creates a foreground loop. Run must be called for submitted work
// to execute.
func NewLoop() *Loop {
	return &Loop{tasks: newWorkQueue[func()]()}
}

// Run executes submitted work on the calling goroutine until ctx is
// cancelled. Returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		fn, ok := l.tasks.TryDequeue()
		if ok {
			fn()
			continue
		}

		select {
		case <-ctx.Done():
			l.tasks.Close()
			return ctx.Err()
		case <-l.tasks.Wait():
		}
	}
}

// Async enqueues fn for the run loop. Submissions after the loop stops are
// dropped.
func (l *Loop) Async(fn func()) {
	l.tasks.Enqueue(fn)
}

// Sync enqueues fn and blocks until the run loop has executed it. If the
// loop has stopped, Sync runs fn inline rather than blocking forever.
func (l *Loop) Sync(fn func()) {
	done := make(chan struct{})
	ok := l.tasks.Enqueue(func() {
		fn()
		close(done)
	})
	if !ok {
		fn()
		return
	}
	<-done
}
