package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextLifecycle(t *testing.T) {
	lax := New(false)
	assert.False(t, lax.Strict())
	assert.True(t, lax.Unlocked())
	assert.False(t, lax.NeedsUnlock())

	strict := New(true)
	assert.True(t, strict.Strict())
	assert.True(t, strict.NeedsUnlock())

	strict.Unlock()
	assert.False(t, strict.NeedsUnlock())
	assert.True(t, strict.Strict(), "unlocking does not lift the gesture requirement")

	strict.Reset()
	assert.True(t, strict.NeedsUnlock())
}

func TestNilContextIsPermissive(t *testing.T) {
	var c *Context
	assert.False(t, c.Strict())
	assert.True(t, c.Unlocked())
	c.Unlock()
	c.Reset()
}
