package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageHash_Deterministic(t *testing.T) {
	h1 := messageHash("C1", "100.1", "I can help with Python")
	h2 := messageHash("C1", "100.1", "I can help with Python")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16)
}

func TestMessageHash_DiffersOnAnyComponent(t *testing.T) {
	base := messageHash("C1", "100.1", "text")
	assert.NotEqual(t, base, messageHash("C2", "100.1", "text"))
	assert.NotEqual(t, base, messageHash("C1", "100.2", "text"))
	assert.NotEqual(t, base, messageHash("C1", "100.1", "other"))
}
