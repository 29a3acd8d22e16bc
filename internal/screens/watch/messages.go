package watch

import (
	"time"

	"github.com/abhisek/vidquiz/internal/learning"
)

// runStartedMsg is sent once the learning run has been assembled.
type runStartedMsg struct {
	Run *learning.Run
	Err error
}

// pollTickMsg refreshes the view from the run state.
type pollTickMsg time.Time

// answerDoneMsg is sent when the answer flow returns.
type answerDoneMsg struct {
	Index int
	Err   error
}

// actionDoneMsg is sent when a learner gesture has been handled.
type actionDoneMsg struct {
	Action string
	Err    error
}
