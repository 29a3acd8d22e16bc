package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// Output plays encoded audio.
type Output interface {
	Play(ctx context.Context, audio []byte) (Playback, error)
}

// Playback is one audio clip being played.
type Playback interface {
	// Done delivers once when the clip ends naturally (nil) or fails.
	// Nothing is delivered after Stop.
	Done() <-chan error

	// Position is the elapsed play time.
	Position() time.Duration

	// Duration is the clip length, or 0 when unknown.
	Duration() time.Duration

	// Stop halts playback and releases its resources. It returns once
	// they are released and is safe to call more than once.
	Stop()
}

// TimedOutput simulates playback by waiting for the estimated duration
// of each clip.
type TimedOutput struct {
	Bitrate int
	Clock   func() time.Time
}

func (o TimedOutput) Play(ctx context.Context, audio []byte) (Playback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := o.Clock
	if now == nil {
		now = time.Now
	}
	p := &timedPlayback{
		now:   now,
		start: now(),
		dur:   EstimateDuration(audio, o.Bitrate),
		done:  make(chan error, 1),
	}
	p.timer = time.AfterFunc(p.dur, func() { p.done <- nil })
	return p, nil
}

type timedPlayback struct {
	now   func() time.Time
	start time.Time
	dur   time.Duration
	timer *time.Timer
	done  chan error

	mu      sync.Mutex
	stopped bool
	frozen  time.Duration
}

func (p *timedPlayback) Done() <-chan error { return p.done }

func (p *timedPlayback) Duration() time.Duration { return p.dur }

func (p *timedPlayback) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return p.frozen
	}
	return min(p.now().Sub(p.start), p.dur)
}

func (p *timedPlayback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.frozen = min(p.now().Sub(p.start), p.dur)
	p.stopped = true
	p.timer.Stop()
}

// CommandOutput pipes each clip into an external audio player reading
// from standard input.
type CommandOutput struct {
	Path    string
	Args    []string
	Bitrate int
}

// NewCommandOutput returns an output for player, which is looked up on
// PATH. ffplay and mpg123 get their stdin arguments filled in.
func NewCommandOutput(player string) (*CommandOutput, error) {
	path, err := exec.LookPath(player)
	if err != nil {
		return nil, fmt.Errorf("audio player %q: %w", player, err)
	}
	var args []string
	switch filepath.Base(player) {
	case "ffplay":
		args = []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-i", "-"}
	case "mpg123":
		args = []string{"-q", "-"}
	}
	return &CommandOutput{Path: path, Args: args}, nil
}

func (o *CommandOutput) Play(ctx context.Context, audio []byte) (Playback, error) {
	cmd := exec.Command(o.Path, o.Args...)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start audio player: %w", err)
	}

	p := &commandPlayback{
		cmd:    cmd,
		start:  time.Now(),
		dur:    EstimateDuration(audio, o.Bitrate),
		done:   make(chan error, 1),
		exited: make(chan struct{}),
	}
	go func() {
		err := cmd.Wait()
		close(p.exited)
		p.mu.Lock()
		stopped := p.stopped
		p.mu.Unlock()
		if stopped {
			return
		}
		if err != nil {
			err = fmt.Errorf("audio player: %w", err)
		}
		p.done <- err
	}()
	return p, nil
}

type commandPlayback struct {
	cmd    *exec.Cmd
	start  time.Time
	dur    time.Duration
	done   chan error
	exited chan struct{}

	mu      sync.Mutex
	stopped bool
}

func (p *commandPlayback) Done() <-chan error { return p.done }

func (p *commandPlayback) Duration() time.Duration { return p.dur }

func (p *commandPlayback) Position() time.Duration {
	return min(time.Since(p.start), p.dur)
}

func (p *commandPlayback) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	select {
	case <-p.exited:
		return
	default:
	}
	_ = p.cmd.Process.Kill()
	<-p.exited
}
