package core_test

import (
	"encoding/base64"
	"testing"

	"notesd/core"

	"github.com/stretchr/testify/assert"
)

func TestGenerateState_Entropy(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		state, err := core.GenerateState()
		assert.NoError(t, err)
		assert.False(t, seen[state], "duplicate state generated")
		seen[state] = true
	}
}

func TestGenerateState_URLSafe(t *testing.T) {
	state, err := core.GenerateState()
	assert.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(state)
	assert.NoError(t, err)
	assert.Len(t, raw, 32, "state should carry 256 bits of entropy")
}
