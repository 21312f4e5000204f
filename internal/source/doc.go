// Package source defines the data-source collaborators the controller
// consumes: a query that produces the initial item set, a membership
// predicate, and a subscription delivering batches of change notifications.
//
// Two implementations ship with the package:
//
//   - Memory: an in-memory source for tests and the scenario harness.
//   - SQLite: executes a configured SQL query against a SQLite database and
//     publishes change batches for rows written through its helpers.
//
// Every item handed to a subscriber is an independent copy, safe to read
// from the controller's serial worker. Change batches carry items as `any`:
// the controller filters them to its domain type by exact type assertion, so
// a source may deliver notifications for several types on one subscription.
package source
