package engine

import "sync"

// workQueue is a thread-safe unbounded FIFO queue.
//
// The queue is unbounded so publishers never block: a notification batch is
// fire-and-forget once accepted. Thread-safety covers external enqueuing
// (subscription callbacks, accessor-side requests) while a single worker
// dequeues.
//
// A buffered signal channel of size 1 coalesces wakeups and enables
// select-based waiting in the worker loop.
type workQueue[E any] struct {
	mu     sync.Mutex
	items  []E
	closed bool
	signal chan struct{}
}

func newWorkQueue[E any]() *workQueue[E] {
	return &workQueue[E]{
		items:  make([]E, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *workQueue[E]) Enqueue(e E) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns the zero value and false if the queue is empty.
func (q *workQueue[E]) TryDequeue() (E, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero E
	if len(q.items) == 0 {
		return zero, false
	}

	e := q.items[0]

	// Nil out the slot so the backing array does not retain references
	// until reallocation.
	q.items[0] = zero
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return e, true
}

// Wait returns a channel that signals when items may be available. The
// channel closes when the queue is closed, waking all waiters.
func (q *workQueue[E]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *workQueue[E]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drained reports whether the queue is closed with no items left. A worker
// woken by a stale signal must not exit on an empty-but-open queue.
func (q *workQueue[E]) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}

// Close signals that no more items will be enqueued.
func (q *workQueue[E]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
