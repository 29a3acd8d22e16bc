// Package platform describes the audio playback restrictions of the
// environment the learner runs in.
package platform

import "sync/atomic"

// Context carries the audio-unlock state. A strict platform refuses to
// start audio that is not preceded by a learner gesture, so questions wait
// behind a tap-to-start gate there.
type Context struct {
	strict   bool
	unlocked atomic.Bool
}

// New returns a Context. Non-strict platforms start unlocked.
func New(strict bool) *Context {
	c := &Context{strict: strict}
	c.unlocked.Store(!strict)
	return c
}

// Strict reports whether un-gestured audio is refused.
func (c *Context) Strict() bool {
	return c != nil && c.strict
}

// Unlocked reports whether a gesture has enabled audio.
func (c *Context) Unlocked() bool {
	return c == nil || c.unlocked.Load()
}

// NeedsUnlock reports whether the learner must enable audio before the
// first narration.
func (c *Context) NeedsUnlock() bool {
	return c.Strict() && !c.Unlocked()
}

// Unlock records a learner gesture.
func (c *Context) Unlock() {
	if c != nil {
		c.unlocked.Store(true)
	}
}

// Reset returns the context to its initial state.
func (c *Context) Reset() {
	if c != nil {
		c.unlocked.Store(!c.strict)
	}
}
