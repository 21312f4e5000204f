package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedTokenGenerator(t *testing.T) {
	gen := NewFixedTokenGenerator("scenario-7")
	assert.Equal(t, "scenario-7", gen.Generate())
	assert.Equal(t, "scenario-7", gen.Generate())
}

func TestFixedTokenGenerator_DefaultsWhenEmpty(t *testing.T) {
	gen := NewFixedTokenGenerator("")
	assert.Equal(t, "test-token", gen.Generate())
}

func TestSequentialTokenGenerator(t *testing.T) {
	gen := NewSequentialTokenGenerator()
	assert.Equal(t, "tx-0001", gen.Generate())
	assert.Equal(t, "tx-0002", gen.Generate())
	assert.Equal(t, "tx-0003", gen.Generate())
}
