// Package timing decides when playback has reached a quiz segment.
package timing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/quiz"
)

const (
	// DefaultInterval is the poll period while armed.
	DefaultInterval = 100 * time.Millisecond

	// DefaultDebounce is the minimum spacing between two checks.
	DefaultDebounce = 100 * time.Millisecond
)

// Cursor is the question progress within the current video.
type Cursor struct {
	SegmentIndex int
	// Answered is set once the question at SegmentIndex was answered and
	// the next segment's cue is awaited.
	Answered bool
	// Showing is set while a question is on screen or pending a tap.
	Showing bool
}

// Decision is the outcome of one check.
type Decision struct {
	Fire         bool
	SegmentIndex int
	Segment      quiz.Segment
	// Pause is set when the trigger came from the current segment, which
	// requires the video to be paused before display.
	Pause bool
}

// Decide compares the playback position against the segment the cursor
// is waiting for. A segment fires once pos reaches or passes its
// timestamp. Segments with unparseable timestamps never fire.
func Decide(pos time.Duration, c Cursor, segments []quiz.Segment) Decision {
	if c.Answered {
		next := c.SegmentIndex + 1
		if next >= len(segments) || c.Showing {
			return Decision{}
		}
		if reached(pos, segments[next]) {
			return Decision{Fire: true, SegmentIndex: next, Segment: segments[next]}
		}
		return Decision{}
	}

	if c.SegmentIndex < 0 || c.SegmentIndex >= len(segments) || c.Showing {
		return Decision{}
	}
	seg := segments[c.SegmentIndex]
	if reached(pos, seg) {
		return Decision{Fire: true, SegmentIndex: c.SegmentIndex, Segment: seg, Pause: true}
	}
	return Decision{}
}

func reached(pos time.Duration, seg quiz.Segment) bool {
	at, err := seg.At()
	return err == nil && pos >= at
}

// PositionReader reports the playback position.
type PositionReader interface {
	CurrentTime(ctx context.Context) (time.Duration, error)
}

// Source returns the cursor and segments of the current video.
type Source func() (Cursor, []quiz.Segment)

// TriggerFunc receives a firing decision. It runs on the watcher's
// goroutine and must not call Disarm.
type TriggerFunc func(ctx context.Context, d Decision)

// Watcher polls a PositionReader while armed.
type Watcher struct {
	reader   PositionReader
	source   Source
	trigger  TriggerFunc
	interval time.Duration
	debounce time.Duration
	now      func() time.Time
	log      zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}

	checkMu sync.Mutex
	last    time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) { w.interval = d }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithClock overrides the clock used for debouncing.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// WithLogger sets the logger for position read failures.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) { w.log = l.With().Str("component", "timing").Logger() }
}

// NewWatcher creates a disarmed Watcher.
func NewWatcher(reader PositionReader, source Source, trigger TriggerFunc, opts ...Option) *Watcher {
	w := &Watcher{
		reader:   reader,
		source:   source,
		trigger:  trigger,
		interval: DefaultInterval,
		debounce: DefaultDebounce,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Arm starts polling. Arming an armed watcher restarts the poll.
func (w *Watcher) Arm(ctx context.Context) {
	w.Disarm()

	w.mu.Lock()
	defer w.mu.Unlock()
	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	w.cancel = cancel
	w.stopped = stopped
	go w.loop(ctx, stopped)
}

// Disarm stops polling. No check runs after it returns.
func (w *Watcher) Disarm() {
	w.mu.Lock()
	cancel, stopped := w.cancel, w.stopped
	w.cancel, w.stopped = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// Armed reports whether the watcher is polling.
func (w *Watcher) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Watcher) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := w.Check(ctx); err != nil && ctx.Err() == nil {
				w.log.Warn().Err(err).Msg("timing check failed")
			}
		}
	}
}

// Check runs one check and invokes the trigger when a segment is due.
// Calls closer than the debounce window to the previous check are
// ignored.
func (w *Watcher) Check(ctx context.Context) (Decision, error) {
	w.checkMu.Lock()
	defer w.checkMu.Unlock()

	now := w.now()
	if !w.last.IsZero() && now.Sub(w.last) < w.debounce {
		return Decision{}, nil
	}
	w.last = now

	pos, err := w.reader.CurrentTime(ctx)
	if err != nil {
		return Decision{}, err
	}
	if ctx.Err() != nil {
		return Decision{}, ctx.Err()
	}
	cur, segments := w.source()
	d := Decide(pos, cur, segments)
	if d.Fire {
		w.log.Debug().Int("segment", d.SegmentIndex).Dur("position", pos).Msg("segment reached")
		w.trigger(ctx, d)
	}
	return d, nil
}
