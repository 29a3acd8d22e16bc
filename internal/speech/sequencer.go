package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/platform"
)

// ErrCleared is returned by Add for items removed by Clear.
var ErrCleared = errors.New("speech: cleared")

const (
	nearEndPoll   = 50 * time.Millisecond
	nearEndMargin = 100 * time.Millisecond
)

type item struct {
	text     string
	done     chan error
	released chan struct{}
}

// Sequencer plays utterances one at a time in submission order.
type Sequencer struct {
	synth    Synthesizer
	out      Output
	platform *platform.Context
	log      zerolog.Logger

	mu       sync.Mutex
	queue    []*item
	draining bool
	current  *item
	playback Playback
	cancel   context.CancelFunc
}

// SequencerOption configures a Sequencer.
type SequencerOption func(*Sequencer)

// WithPlatform enables the near-end completion check on strict platforms.
func WithPlatform(p *platform.Context) SequencerOption {
	return func(s *Sequencer) { s.platform = p }
}

// WithLogger sets the logger for skipped utterances.
func WithLogger(l zerolog.Logger) SequencerOption {
	return func(s *Sequencer) { s.log = l.With().Str("component", "speech").Logger() }
}

// NewSequencer creates a Sequencer.
func NewSequencer(synth Synthesizer, out Output, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{synth: synth, out: out, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add enqueues text and waits until it has been spoken. It returns nil
// when the utterance finished or failed (failures are logged and
// skipped), ErrCleared when Clear removed it, or the context error. Blank
// text completes immediately.
func (s *Sequencer) Add(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	it := &item{text: text, done: make(chan error, 1), released: make(chan struct{})}

	s.mu.Lock()
	s.queue = append(s.queue, it)
	if !s.draining {
		s.draining = true
		go s.drain()
	}
	s.mu.Unlock()

	select {
	case err := <-it.done:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		s.removeLocked(it)
		s.mu.Unlock()
		return ctx.Err()
	}
}

// Clear drops every pending utterance and stops the one playing. It
// returns after the playing clip has been released. Calling it while idle
// is a no-op.
func (s *Sequencer) Clear(ctx context.Context) error {
	s.mu.Lock()
	pending := s.queue
	s.queue = nil
	cur := s.current
	s.current = nil
	pb := s.playback
	s.playback = nil
	cancel := s.cancel
	s.mu.Unlock()

	for _, it := range pending {
		it.done <- ErrCleared
	}
	if cancel != nil {
		cancel()
	}
	if pb != nil {
		pb.Stop()
	}
	if cur == nil {
		return nil
	}
	select {
	case <-cur.released:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Idle reports whether nothing is playing or queued.
func (s *Sequencer) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.draining && len(s.queue) == 0
}

// Pending is the number of utterances waiting behind the current one.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Sequencer) removeLocked(it *item) {
	for i, q := range s.queue {
		if q == it {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

func (s *Sequencer) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		it := s.queue[0]
		s.queue = s.queue[1:]
		ctx, cancel := context.WithCancel(context.Background())
		s.current = it
		s.cancel = cancel
		s.mu.Unlock()

		err := s.speak(ctx, it)
		cancel()

		s.mu.Lock()
		cleared := s.current != it
		if !cleared {
			s.current = nil
			s.playback = nil
			s.cancel = nil
		}
		s.mu.Unlock()

		switch {
		case cleared:
			it.done <- ErrCleared
		case err != nil:
			s.log.Warn().Err(err).Str("text", truncate(it.text, 60)).Msg("skipping utterance")
			it.done <- nil
		default:
			it.done <- nil
		}
		close(it.released)
	}
}

func (s *Sequencer) speak(ctx context.Context, it *item) error {
	audio, err := s.synth.Synthesize(ctx, it.text)
	if err != nil {
		return err
	}
	pb, err := s.out.Play(ctx, audio)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.current != it {
		s.mu.Unlock()
		pb.Stop()
		return ErrCleared
	}
	s.playback = pb
	s.mu.Unlock()

	var poll <-chan time.Time
	if s.platform.Strict() {
		t := time.NewTicker(nearEndPoll)
		defer t.Stop()
		poll = t.C
	}

	for {
		select {
		case err := <-pb.Done():
			return err
		case <-poll:
			if d := pb.Duration(); d > 0 && pb.Position() >= d-nearEndMargin {
				pb.Stop()
				return nil
			}
		case <-ctx.Done():
			pb.Stop()
			return ctx.Err()
		}
	}
}

// truncate shortens s to n runes for log lines.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
