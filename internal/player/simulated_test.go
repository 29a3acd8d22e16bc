package player

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func drain(ch <-chan State) (out []State) {
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, s)
		default:
			return out
		}
	}
}

func TestSimulatedLifecycle(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	p := NewSimulated(10*time.Second, WithClock(c.now))
	assert.Equal(t, Cued, p.State())

	require.NoError(t, p.Play(ctx))
	c.advance(4 * time.Second)
	pos, err := p.CurrentTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, pos)

	require.NoError(t, p.Pause(ctx))
	c.advance(time.Minute)
	pos, _ = p.CurrentTime(ctx)
	assert.Equal(t, 4*time.Second, pos, "paused position does not move")

	require.NoError(t, p.Play(ctx))
	c.advance(7 * time.Second)
	p.Poll()
	assert.Equal(t, Ended, p.State())
	pos, _ = p.CurrentTime(ctx)
	assert.Equal(t, 10*time.Second, pos)

	assert.Equal(t, []State{Playing, Paused, Playing, Ended}, drain(p.Events()))

	require.NoError(t, p.Destroy())
	require.NoError(t, p.Destroy())
	_, err = p.CurrentTime(ctx)
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.ErrorIs(t, p.Play(ctx), ErrDestroyed)
}

func TestSimulatedStateAfterDestroyWhilePlaying(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	p := NewSimulated(10*time.Second, WithClock(c.now))
	require.NoError(t, p.Play(ctx))
	require.NoError(t, p.Destroy())

	c.advance(11 * time.Second)
	assert.NotPanics(t, func() {
		assert.Equal(t, Playing, p.State(), "a destroyed player keeps its last state")
	})
	_, open := <-p.Events()
	for open {
		_, open = <-p.Events()
	}
}

func TestSimulatedRateAndSeek(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	p := NewSimulated(2*time.Minute, WithClock(c.now), WithRate(4))

	require.NoError(t, p.Play(ctx))
	c.advance(5 * time.Second)
	pos, _ := p.CurrentTime(ctx)
	assert.Equal(t, 20*time.Second, pos)

	require.NoError(t, p.Seek(90*time.Second))
	pos, _ = p.CurrentTime(ctx)
	assert.Equal(t, 90*time.Second, pos)

	p.Buffer()
	assert.Equal(t, Buffering, p.State())

	require.NoError(t, p.Stop(ctx))
	pos, _ = p.CurrentTime(ctx)
	assert.Equal(t, time.Duration(0), pos)
	assert.Equal(t, Cued, p.State())

	require.NoError(t, p.Load(30*time.Second))
	assert.Equal(t, 30*time.Second, p.Duration())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "playing", Playing.String())
	assert.Equal(t, "ended", Ended.String())
	assert.Equal(t, "unknown", State(42).String())
}
