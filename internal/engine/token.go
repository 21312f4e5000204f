package engine

import "github.com/google/uuid"

// TokenGenerator generates transaction tokens for log correlation.
// Implemented by UUIDv7Generator (production) and the fixed generator in
// internal/testutil (deterministic tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 transaction tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so tokens sort by
// creation time - convenient when correlating transactions across logs.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
