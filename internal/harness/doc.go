// Package harness runs YAML-defined projection scenarios end to end: seed
// rows, publish change batches, capture the edit stream, evaluate
// assertions, and optionally compare the whole trace against a golden file.
//
// A scenario drives a real controller over an in-memory record source in
// synchronous mode, so every run of the same scenario produces the same
// trace byte for byte. The golden files under testdata/golden are the
// reference for expected edit emission; regenerate them with
//
//	go test ./internal/harness -update
//
// after an intentional behavior change, and review the diff like code.
package harness
