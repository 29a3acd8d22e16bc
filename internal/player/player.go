// Package player defines the video playback contract the learning flow
// drives, with a clock-driven implementation for terminals and tests.
package player

import (
	"context"
	"errors"
	"time"
)

// State is a playback state. Values match the YouTube IFrame API.
type State int

const (
	Unstarted State = -1
	Ended     State = 0
	Playing   State = 1
	Paused    State = 2
	Buffering State = 3
	Cued      State = 5
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Ended:
		return "ended"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Buffering:
		return "buffering"
	case Cued:
		return "cued"
	default:
		return "unknown"
	}
}

// ErrDestroyed is returned by a player after Destroy.
var ErrDestroyed = errors.New("player: destroyed")

// Player is a video playback widget.
type Player interface {
	CurrentTime(ctx context.Context) (time.Duration, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	Destroy() error
}
