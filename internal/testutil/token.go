package testutil

import (
	"fmt"
	"sync"
)

// FixedTokenGenerator always returns the same transaction token, typically
// set from a scenario file. Golden traces stay byte-identical across runs.
//
// Implements engine.TokenGenerator. Stateless after construction, safe for
// concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator returns a generator for token; empty falls back to
// "test-token".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-token"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed token.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}

// SequentialTokenGenerator returns "tx-0001", "tx-0002", ... so each
// transaction in a trace carries a distinct but stable token.
type SequentialTokenGenerator struct {
	mu sync.Mutex
	n  int
}

// NewSequentialTokenGenerator returns a generator starting at tx-0001.
func NewSequentialTokenGenerator() *SequentialTokenGenerator {
	return &SequentialTokenGenerator{}
}

// Generate returns the next token in sequence.
func (g *SequentialTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("tx-%04d", g.n)
}
