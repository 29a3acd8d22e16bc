package player

import (
	"context"
	"sync"
	"time"
)

// eventBuffer bounds the state-change backlog. Changes beyond it are
// dropped rather than blocking the caller.
const eventBuffer = 32

// Simulated is a player whose position advances with the wall clock while
// playing. State changes are published on Events.
type Simulated struct {
	now  func() time.Time
	rate float64

	mu        sync.Mutex
	duration  time.Duration
	pos       time.Duration
	anchor    time.Time
	state     State
	destroyed bool
	events    chan State
}

// SimOption configures a Simulated player.
type SimOption func(*Simulated)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) SimOption {
	return func(p *Simulated) { p.now = now }
}

// WithRate plays faster (>1) or slower (<1) than real time.
func WithRate(rate float64) SimOption {
	return func(p *Simulated) {
		if rate > 0 {
			p.rate = rate
		}
	}
}

// NewSimulated returns a cued player for a video of the given length.
func NewSimulated(duration time.Duration, opts ...SimOption) *Simulated {
	p := &Simulated{
		now:      time.Now,
		rate:     1,
		duration: duration,
		state:    Cued,
		events:   make(chan State, eventBuffer),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Events delivers state changes. It is closed by Destroy.
func (p *Simulated) Events() <-chan State { return p.events }

// State returns the current playback state.
func (p *Simulated) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.destroyed {
		p.checkEndLocked()
	}
	return p.state
}

// Duration is the video length.
func (p *Simulated) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Load cues a new video of the given length.
func (p *Simulated) Load(duration time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	p.duration = duration
	p.pos = 0
	p.setLocked(Cued)
	return nil
}

func (p *Simulated) CurrentTime(context.Context) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, ErrDestroyed
	}
	p.checkEndLocked()
	return p.positionLocked(), nil
}

func (p *Simulated) Play(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	p.checkEndLocked()
	if p.state == Playing {
		return nil
	}
	if p.state == Ended {
		p.pos = 0
	}
	p.anchor = p.now()
	p.setLocked(Playing)
	return nil
}

func (p *Simulated) Pause(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	p.checkEndLocked()
	if p.state != Playing && p.state != Buffering {
		return nil
	}
	p.pos = p.positionLocked()
	p.setLocked(Paused)
	return nil
}

func (p *Simulated) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	p.pos = 0
	p.setLocked(Cued)
	return nil
}

// Seek jumps to pos, clamped to the video length.
func (p *Simulated) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	p.pos = max(0, min(pos, p.duration))
	p.anchor = p.now()
	p.checkEndLocked()
	return nil
}

// Buffer simulates a network stall until the next Play.
func (p *Simulated) Buffer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed || p.state != Playing {
		return
	}
	p.pos = p.positionLocked()
	p.setLocked(Buffering)
}

// Poll publishes the end of the video once the position reaches it.
// Callers drive it from a ticker.
func (p *Simulated) Poll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.destroyed {
		p.checkEndLocked()
	}
}

// Run polls until ctx is done.
func (p *Simulated) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Poll()
		}
	}
}

func (p *Simulated) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return nil
	}
	p.destroyed = true
	close(p.events)
	return nil
}

func (p *Simulated) positionLocked() time.Duration {
	if p.state != Playing {
		return p.pos
	}
	elapsed := time.Duration(float64(p.now().Sub(p.anchor)) * p.rate)
	return min(p.pos+elapsed, p.duration)
}

func (p *Simulated) checkEndLocked() {
	if p.state == Playing && p.positionLocked() >= p.duration {
		p.pos = p.duration
		p.setLocked(Ended)
	}
}

// setLocked publishes s. Events is closed once destroyed, so nothing is
// sent after that.
func (p *Simulated) setLocked(s State) {
	if p.destroyed || p.state == s {
		return
	}
	p.state = s
	select {
	case p.events <- s:
	default:
	}
}
