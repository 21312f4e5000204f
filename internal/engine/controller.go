package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/roach88/liveset/internal/projection"
	"github.com/roach88/liveset/internal/source"
)

// State is the controller lifecycle state.
type State int32

const (
	// StateIdle means PerformFetch has not run yet.
	StateIdle State = iota
	// StatePopulating means a full fetch/reset is in progress.
	StatePopulating
	// StatePopulated means the projection is live and between transactions.
	StatePopulated
	// StateProcessingBatch means a notification batch is being reconciled.
	StateProcessingBatch
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePopulating:
		return "populating"
	case StatePopulated:
		return "populated"
	case StateProcessingBatch:
		return "processing_batch"
	default:
		return "unknown"
	}
}

// Delegate receives the edit transaction stream, marshalled to the
// foreground executor in emission order.
type Delegate[P any] interface {
	// WillChangeResults opens a transaction. Always paired with
	// DidChangeResults, emitted only when at least one change is pending.
	WillChangeResults()

	// DidChangeObject reports one Insert/Update/Delete/Move edit with the
	// presentation-mapped object.
	DidChangeObject(object P, old, new projection.Path, kind projection.ChangeKind)

	// DidChangeSection reports one section insert or delete.
	DidChangeSection(key string, index int, kind projection.SectionChangeKind)

	// DidChangeResults closes the transaction. Read accessors are valid
	// from this callback until the next WillChangeResults.
	DidChangeResults()
}

// Options configures a controller. Source, Identity, SortRules and Map are
// required; everything else has a production default.
type Options[T, P any] struct {
	// Source is the query collaborator: initial item set, membership
	// predicate, change subscription.
	Source source.Query[T]

	// Identity extracts the stable logical-entity key of an item.
	Identity func(T) string

	// SortRules is the ordered, non-empty sort rule list.
	SortRules []projection.SortRule[T]

	// Grouping routes items to sections; nil uses one default section.
	Grouping *projection.Grouping[T]

	// Filter is the optional extra predicate over the source's own. An
	// item must pass both to be visible.
	Filter func(T) bool

	// Map converts the stored domain item to the presentation type on
	// read and on delegate callbacks. The result is never persisted.
	Map func(T) P

	// Delegate receives the edit stream. Nil discards it.
	Delegate Delegate[P]

	// Foreground marshals delegate callbacks and group-key rendezvous.
	// Defaults to DirectExecutor.
	Foreground Executor

	// GroupKeyOnForeground routes group key reads through a synchronous
	// foreground rendezvous, for keys derived from foreground-owned state.
	GroupKeyOnForeground bool

	// Synchronous runs batch processing on the calling goroutine instead
	// of the serial worker, for deterministic tests.
	Synchronous bool

	// Tokens generates transaction tokens. Defaults to UUIDv7Generator.
	Tokens TokenGenerator

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// SectionSummary describes one section without exposing its objects;
// callers read items through the position-based accessors.
type SectionSummary struct {
	Key   string
	Count int
}

// Controller reconciles a live sectioned projection against change
// notification batches. See the package documentation for the threading and
// transaction model.
type Controller[T, P any] struct {
	src      source.Query[T]
	store    *projection.Store[T]
	identity func(T) string
	mapFn    func(T) P
	delegate Delegate[P]
	fg       Executor
	logger   *slog.Logger
	tokens   TokenGenerator
	clock    *Clock

	synchronous bool
	state       atomic.Int32

	jobs       *workQueue[func()]
	workerDone chan struct{}

	sub       source.Subscription
	closeOnce sync.Once

	// filter is worker-owned after construction: UpdateFilter replaces it
	// on the serial worker, never concurrently with a batch.
	filter func(T) bool
}

// New validates opts, constructs the projection store, subscribes to the
// source, and (in asynchronous mode) starts the serial worker. Construction
// errors - missing collaborators, empty sort rules, grouping field not
// matching the first sort rule - are reported here and never at runtime.
func New[T, P any](opts Options[T, P]) (*Controller[T, P], error) {
	if opts.Source == nil {
		return nil, ErrNoSource
	}
	if opts.Map == nil {
		return nil, ErrNoMap
	}

	c := &Controller[T, P]{
		src:         opts.Source,
		identity:    opts.Identity,
		mapFn:       opts.Map,
		delegate:    opts.Delegate,
		fg:          opts.Foreground,
		logger:      opts.Logger,
		tokens:      opts.Tokens,
		clock:       NewClock(),
		synchronous: opts.Synchronous,
		jobs:        newWorkQueue[func()](),
		workerDone:  make(chan struct{}),
		filter:      opts.Filter,
	}
	if c.fg == nil {
		c.fg = DirectExecutor{}
	}
	if c.tokens == nil {
		c.tokens = UUIDv7Generator{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	var keyReader func(T) string
	if opts.GroupKeyOnForeground && opts.Grouping != nil {
		key := opts.Grouping.Key
		keyReader = func(item T) string {
			// Bounded rendezvous: the worker blocks until the foreground
			// returns the key; the foreground never blocks on the worker.
			var k string
			c.fg.Sync(func() { k = key(item) })
			return k
		}
	}

	store, err := projection.New(projection.Config[T]{
		Identity:  opts.Identity,
		SortRules: opts.SortRules,
		Grouping:  opts.Grouping,
		Listener:  c,
		KeyReader: keyReader,
	})
	if err != nil {
		return nil, err
	}
	c.store = store

	if !c.synchronous {
		go c.runWorker()
	} else {
		close(c.workerDone)
	}

	sub, err := opts.Source.Subscribe(c.accept)
	if err != nil {
		c.jobs.Close()
		return nil, err
	}
	c.sub = sub

	return c, nil
}

// PerformFetch executes the query, applies the active filter, and resets
// the projection from the result. The first call moves the controller to
// Populated; a later call is a full resynchronization, not an incremental
// diff - prior index paths become invalid and the presentation must reload.
//
// Blocks until the reset has been applied on the serial worker.
func (c *Controller[T, P]) PerformFetch(ctx context.Context) error {
	var err error
	if perr := c.perform(func() { err = c.fetch(ctx) }); perr != nil {
		return perr
	}
	return err
}

// UpdateFilter replaces the filter predicate and re-runs the fetch. There
// is no partial-diff optimization: conceptually a fresh load.
func (c *Controller[T, P]) UpdateFilter(ctx context.Context, filter func(T) bool) error {
	var err error
	if perr := c.perform(func() {
		c.filter = filter
		err = c.fetch(ctx)
	}); perr != nil {
		return perr
	}
	return err
}

// Close tears down the subscription and stops the serial worker. Batches
// already accepted run to completion first. Idempotent.
func (c *Controller[T, P]) Close() error {
	c.closeOnce.Do(func() {
		if c.sub != nil {
			c.sub.Close()
		}
		c.jobs.Close()
		<-c.workerDone
	})
	return nil
}

// State returns the current lifecycle state.
func (c *Controller[T, P]) State() State {
	return State(c.state.Load())
}

// NumberOfSections returns the section count.
//
// Foreground-context-only, like all read accessors: valid between a
// DidChangeResults delivery and the next WillChangeResults, not safe
// concurrently with a batch in flight.
func (c *Controller[T, P]) NumberOfSections() int {
	return c.store.SectionCount()
}

// NumberOfObjects returns the item count of one section, or 0 when the
// section index is out of range.
func (c *Controller[T, P]) NumberOfObjects(section int) int {
	if section < 0 || section >= c.store.SectionCount() {
		return 0
	}
	return c.store.SectionAt(section).Len()
}

// ObjectAt returns the presentation-mapped item at the given position.
func (c *Controller[T, P]) ObjectAt(p projection.Path) (P, bool) {
	item, ok := c.store.ItemAt(p)
	if !ok {
		var zero P
		return zero, false
	}
	return c.mapFn(item), true
}

// Sections summarizes the section list with objects excluded; callers read
// items through ObjectAt.
func (c *Controller[T, P]) Sections() []SectionSummary {
	out := make([]SectionSummary, c.store.SectionCount())
	for i := range out {
		sec := c.store.SectionAt(i)
		out[i] = SectionSummary{Key: sec.Key(), Count: sec.Len()}
	}
	return out
}

// ObjectChanged implements projection.Listener: edits are mapped and
// forwarded to the delegate on the foreground, in emission order.
func (c *Controller[T, P]) ObjectChanged(item T, old, new projection.Path, kind projection.ChangeKind) {
	if c.delegate == nil {
		return
	}
	mapped := c.mapFn(item)
	c.fg.Async(func() { c.delegate.DidChangeObject(mapped, old, new, kind) })
}

// SectionChanged implements projection.Listener.
func (c *Controller[T, P]) SectionChanged(key string, index int, kind projection.SectionChangeKind) {
	if c.delegate == nil {
		return
	}
	c.fg.Async(func() { c.delegate.DidChangeSection(key, index, kind) })
}

// perform runs fn on the serial worker and blocks until it completes. In
// synchronous mode fn runs inline.
func (c *Controller[T, P]) perform(fn func()) error {
	if c.synchronous {
		fn()
		return nil
	}
	done := make(chan struct{})
	if !c.jobs.Enqueue(func() {
		fn()
		close(done)
	}) {
		return ErrClosed
	}
	<-done
	return nil
}

// accept receives a raw notification batch from the subscription. In
// production mode acceptance is fire-and-forget: once enqueued the batch
// runs to completion, uncancelled.
func (c *Controller[T, P]) accept(b source.Batch) {
	if c.synchronous {
		c.processBatch(b)
		return
	}
	c.jobs.Enqueue(func() { c.processBatch(b) })
}

func (c *Controller[T, P]) runWorker() {
	defer close(c.workerDone)
	for {
		job, ok := c.jobs.TryDequeue()
		if ok {
			job()
			continue
		}
		if c.jobs.Drained() {
			return
		}
		<-c.jobs.Wait()
	}
}

func (c *Controller[T, P]) fetch(ctx context.Context) error {
	c.state.Store(int32(StatePopulating))

	items, err := c.src.Execute(ctx)
	if err != nil {
		c.state.Store(int32(StateIdle))
		return err
	}

	if c.filter != nil {
		kept := items[:0:0]
		for _, item := range items {
			if c.filter(item) {
				kept = append(kept, item)
			}
		}
		items = kept
	}

	c.store.Reset(items)
	c.state.Store(int32(StatePopulated))

	c.logger.Info("projection populated",
		"items", c.store.Len(),
		"sections", c.store.SectionCount(),
	)
	return nil
}

// processBatch partitions one raw batch into the three pending sets and
// commits them as a single transaction.
func (c *Controller[T, P]) processBatch(b source.Batch) {
	if State(c.state.Load()) != StatePopulated {
		c.logger.Debug("dropping batch before initial fetch", "size", len(b))
		return
	}
	c.state.Store(int32(StateProcessingBatch))
	defer c.state.Store(int32(StatePopulated))

	toAdd := make(map[string]T)
	toUpdate := make(map[string]T)
	toDelete := make(map[string]T)

	for _, ch := range b {
		item, ok := ch.Item.(T)
		if !ok {
			// Foreign type: not this controller's domain.
			continue
		}
		id := c.identity(item)

		switch ch.Action {
		case source.ActionDelete:
			if _, created := toAdd[id]; created {
				// Created and deleted in the same batch: nets to nothing.
				delete(toAdd, id)
				continue
			}
			delete(toUpdate, id)
			toDelete[id] = item

		case source.ActionCreate:
			if c.admit(item) {
				toAdd[id] = item
			}

		case source.ActionUpdate:
			if !c.admit(item) {
				// Moved out of visibility: an effective deletion.
				delete(toAdd, id)
				delete(toUpdate, id)
				toDelete[id] = item
				continue
			}
			if _, created := toAdd[id]; created {
				// Updated in the same batch it was created: fold the newer
				// snapshot into the pending insertion.
				toAdd[id] = item
				continue
			}
			toUpdate[id] = item
		}
	}

	c.commit(toAdd, toUpdate, toDelete)
}

// admit reports whether an item passes both the query predicate and the
// active filter.
func (c *Controller[T, P]) admit(item T) bool {
	return c.src.Matches(item) && (c.filter == nil || c.filter(item))
}

// commit applies one transaction. No-op when all three pending sets are
// empty; otherwise the transaction is bracketed by exactly one
// WillChangeResults/DidChangeResults pair.
func (c *Controller[T, P]) commit(toAdd, toUpdate, toDelete map[string]T) {
	// A deletion for an identity the projection never held would produce an
	// empty transaction; dropping it keeps the brackets meaningful.
	for id := range toDelete {
		if !c.store.Contains(id) {
			delete(toDelete, id)
		}
	}
	if len(toAdd)+len(toUpdate)+len(toDelete) == 0 {
		return
	}

	token := c.tokens.Generate()
	seq := c.clock.Next()
	c.logger.Debug("transaction begin",
		"seq", seq,
		"token", token,
		"adds", len(toAdd),
		"updates", len(toUpdate),
		"deletes", len(toDelete),
	)

	if c.delegate != nil {
		c.fg.Async(c.delegate.WillChangeResults)
	}

	// Classification routes reordering updates onto the delete/insert move
	// path; the store pairs them back into single Move edits.
	var finalUpdates []T
	for _, id := range sortedIDs(toUpdate) {
		item := toUpdate[id]
		if c.store.Classify(item) == projection.ClassMove {
			toDelete[id] = item
			toAdd[id] = item
		} else {
			finalUpdates = append(finalUpdates, item)
		}
	}

	c.store.Update(finalUpdates)
	c.store.Delete(values(toDelete))
	c.store.Insert(values(toAdd))

	if c.delegate != nil {
		c.fg.Async(c.delegate.DidChangeResults)
	}
	c.logger.Debug("transaction end", "seq", seq, "token", token)
}

func sortedIDs[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func values[T any](m map[string]T) []T {
	out := make([]T, 0, len(m))
	for _, id := range sortedIDs(m) {
		out = append(out, m[id])
	}
	return out
}
