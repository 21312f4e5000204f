// Package engine implements the reconciliation controller that keeps a
// sorted sectioned projection live against a stream of change notifications.
//
// The controller owns the authoritative item set, batches incoming change
// events into add/update/delete sets, drives the projection store through an
// ordered apply sequence, and emits one well-formed edit transaction
// (willChangeResults, zero or more section/object edits, didChangeResults)
// per non-empty batch.
//
// ARCHITECTURE:
//
// Serial Worker:
// All store mutation and batch processing runs on one strictly-ordered
// serial execution context per controller. Two overlapping notification
// batches can therefore never interleave their delete/insert/update phases
// and corrupt move pairing. In production the worker is a dedicated
// goroutine draining an unbounded FIFO queue; with Synchronous set, batches
// run on the calling goroutine for deterministic test assertions.
//
// Transaction Pipeline:
// 1. Partition raw changes by domain type; foreign types are ignored
// 2. Deletes go to the to-delete set; creates and updates are admitted only
//    if they pass the query predicate and the active filter, an update that
//    stops passing becomes an effective deletion
// 3. Each admitted update is classified by the store: moves are re-routed
//    as a paired delete+insert, the rest stay in-place updates
// 4. Apply: Update, Delete, Insert - the store deferring delete emission
//    keeps the delete-before-insert pairing intact across the calls
// 5. Bracket the whole transaction with willChangeResults/didChangeResults
//
// Foreground Marshalling:
// Delegate callbacks are marshalled to a foreground executor in emission
// order, never reordered or coalesced. When the group key of an item lives
// on foreground-owned state, key reads rendezvous synchronously with the
// foreground: only the worker blocks, never the foreground, so the
// rendezvous cannot deadlock.
//
// Each transaction is stamped with a monotonic sequence number and a UUIDv7
// token for log correlation; neither participates in ordering decisions.
package engine
