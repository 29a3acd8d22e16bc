// Package watch is the learning screen: the video plays, questions pop up
// at their timestamps and the narrator reads them out.
package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/learning"
	"github.com/abhisek/vidquiz/internal/orchestrator"
	"github.com/abhisek/vidquiz/internal/player"
	"github.com/abhisek/vidquiz/internal/queue"
	"github.com/abhisek/vidquiz/internal/router"
	"github.com/abhisek/vidquiz/internal/screen"
	"github.com/abhisek/vidquiz/internal/screens"
	"github.com/abhisek/vidquiz/internal/session"
	"github.com/abhisek/vidquiz/internal/ui/components"
	"github.com/abhisek/vidquiz/internal/ui/layout"
)

const (
	pollInterval = 100 * time.Millisecond
	seekStep     = 10 * time.Second
)

type questionKey struct {
	video, segment int
}

// WatchScreen drives one learning run.
type WatchScreen struct {
	flow screens.Flow
	deps learning.Deps
	sess *session.Session
	log  zerolog.Logger

	run *learning.Run
	err error

	state        queue.State
	choice       components.MultiChoice
	choiceFor    questionKey
	hasChoice    bool
	transitionAt time.Time
	notice       string
	closed       bool
}

var _ screen.Screen = (*WatchScreen)(nil)
var _ screen.KeyHintProvider = (*WatchScreen)(nil)
var _ screen.Closer = (*WatchScreen)(nil)
var _ screen.ScoreProvider = (*WatchScreen)(nil)
var _ screen.BackHandler = (*WatchScreen)(nil)

// New creates a WatchScreen for sess.
func New(flow screens.Flow, deps learning.Deps, sess *session.Session) *WatchScreen {
	return &WatchScreen{
		flow: flow,
		deps: deps,
		sess: sess,
		log:  deps.Logger.With().Str("component", "watch").Logger(),
	}
}

func (w *WatchScreen) Init() tea.Cmd {
	return tea.Batch(w.startRun(), w.poll())
}

func (w *WatchScreen) Title() string {
	if w.run == nil || w.state.TotalVideos == 0 {
		return "Learning"
	}
	return fmt.Sprintf("Video %d of %d", w.state.CurrentVideoIndex+1, w.state.TotalVideos)
}

func (w *WatchScreen) HandlesBack() bool { return true }

// Score implements screen.ScoreProvider.
func (w *WatchScreen) Score() (int, int) {
	return w.state.Score(), len(w.state.LearningHistory)
}

func (w *WatchScreen) KeyHints() []layout.KeyHint {
	if w.run == nil {
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
	}
	orch := w.run.Orchestrator()
	if _, ok := orch.Explanation(); ok {
		return []layout.KeyHint{{Key: "Enter", Description: "Close explanation"}}
	}
	if orch.AwaitingTap() {
		return []layout.KeyHint{{Key: "Enter", Description: "Start question"}}
	}
	if w.state.ShowVideoTransition {
		return []layout.KeyHint{{Key: "Enter", Description: "Next video"}}
	}
	if w.state.ShowQuestion {
		return []layout.KeyHint{
			{Key: "1-4", Description: "Answer"},
			{Key: "↑↓ Enter", Description: "Choose"},
		}
	}
	hints := []layout.KeyHint{
		{Key: "P", Description: "Play/Pause"},
		{Key: "←→", Description: "Seek"},
		{Key: "Q", Description: "Save & quit"},
	}
	if w.canGoBack() {
		hints = append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
	}
	return hints
}

// Close stops the run. Progress stays stored for a later resume.
func (w *WatchScreen) Close() {
	if w.closed {
		return
	}
	w.closed = true
	if w.run != nil {
		w.run.Close()
	}
}

func (w *WatchScreen) startRun() tea.Cmd {
	deps, sess := w.deps, w.sess
	return func() tea.Msg {
		run, err := learning.Start(context.Background(), deps, sess)
		return runStartedMsg{Run: run, Err: err}
	}
}

func (w *WatchScreen) poll() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

// canGoBack follows the session rule: leaving the learning screen is only
// allowed before the first answer is recorded.
func (w *WatchScreen) canGoBack() bool {
	if w.deps.Sessions == nil {
		return len(w.state.LearningHistory) == 0
	}
	cur := w.deps.Sessions.Current()
	return cur == nil || cur.CanNavigateBack()
}

func (w *WatchScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case runStartedMsg:
		if msg.Err != nil {
			w.err = msg.Err
			w.log.Error().Err(msg.Err).Msg("start learning run")
			return w, nil
		}
		if w.closed {
			msg.Run.Close()
			return w, nil
		}
		w.run = msg.Run
		w.refresh()
		return w, nil

	case pollTickMsg:
		if w.closed {
			return w, nil
		}
		if w.run != nil {
			select {
			case <-w.run.Done():
				return w, w.finish()
			default:
			}
			w.refresh()
		}
		return w, w.poll()

	case components.ChoiceMsg:
		return w, w.answer(msg.Index)

	case answerDoneMsg:
		if msg.Err != nil {
			if errors.Is(msg.Err, orchestrator.ErrAnswerIgnored) {
				w.choice.Chosen = -1
			} else {
				w.log.Warn().Err(msg.Err).Int("answer", msg.Index).Msg("answer flow")
			}
		}
		w.refresh()
		return w, nil

	case actionDoneMsg:
		if msg.Err != nil {
			w.log.Debug().Err(msg.Err).Str("action", msg.Action).Msg("gesture ignored")
		}
		w.refresh()
		return w, nil

	case tea.KeyMsg:
		return w, w.handleKey(msg)
	}
	return w, nil
}

func (w *WatchScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "esc":
		if w.run == nil || w.canGoBack() {
			home := w.flow.Home()
			return func() tea.Msg { return router.ResetScreenMsg{Screen: home} }
		}
		w.notice = "Your answers are saved, so you can't go back now. Press Q to save and quit."
		return nil
	case "q":
		return tea.Quit
	}

	if w.run == nil {
		return nil
	}
	w.notice = ""
	orch := w.run.Orchestrator()

	if key == "enter" || key == "space" {
		if _, ok := orch.Explanation(); ok {
			return w.act("close_explanation", orch.CloseExplanation)
		}
		if orch.AwaitingTap() {
			w.deps.Platform.Unlock()
			return w.act("start_question", orch.StartQuestion)
		}
		if w.state.ShowVideoTransition {
			w.transitionAt = time.Time{}
			return w.act("continue", orch.ContinueAfterTransition)
		}
	}

	if w.state.ShowQuestion && w.hasChoice {
		var cmd tea.Cmd
		w.choice, cmd = w.choice.Update(msg)
		return cmd
	}

	p := w.run.Player()
	switch key {
	case "p":
		if p.State() == player.Playing {
			return w.act("pause", p.Pause)
		}
		return w.act("play", p.Play)
	case "b":
		p.Buffer()
	case "right", "l":
		w.seek(seekStep)
	case "left", "h":
		w.seek(-seekStep)
	}
	return nil
}

func (w *WatchScreen) seek(delta time.Duration) {
	p := w.run.Player()
	pos, err := p.CurrentTime(context.Background())
	if err != nil {
		return
	}
	if err := p.Seek(pos + delta); err != nil {
		w.log.Debug().Err(err).Msg("seek")
	}
}

func (w *WatchScreen) act(name string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{Action: name, Err: fn(context.Background())}
	}
}

func (w *WatchScreen) answer(index int) tea.Cmd {
	orch := w.run.Orchestrator()
	return func() tea.Msg {
		return answerDoneMsg{Index: index, Err: orch.SelectAnswer(context.Background(), index)}
	}
}

func (w *WatchScreen) finish() tea.Cmd {
	var sess *session.Session
	if w.deps.Sessions != nil {
		sess = w.deps.Sessions.Current()
	}
	if sess == nil {
		sess = w.sess
		sess.FinalHistory = w.run.History()
		sess.IsComplete = true
	}
	next := w.flow.Report(sess)
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

// refresh copies the run state and keeps the answer picker in step with
// the question on screen.
func (w *WatchScreen) refresh() {
	w.state = w.run.State()
	st := w.state

	if st.ShowVideoTransition {
		if w.transitionAt.IsZero() {
			w.transitionAt = time.Now()
		}
	} else {
		w.transitionAt = time.Time{}
	}

	if !st.ShowQuestion {
		w.hasChoice = false
		return
	}
	seg, ok := w.run.Orchestrator().CurrentSegment()
	if !ok {
		w.hasChoice = false
		return
	}
	key := questionKey{video: st.CurrentVideoIndex, segment: st.CurrentSegmentIndex}
	if !w.hasChoice || w.choiceFor != key {
		w.choice = components.NewMultiChoice(seg.Answers)
		w.choiceFor = key
		w.hasChoice = true
	}
	w.choice.Enabled = st.IsAnswerSelectionEnabled && st.SelectedAnswer == nil
	if st.SelectedAnswer != nil {
		w.choice.Chosen = *st.SelectedAnswer
		w.choice.Correct = seg.CorrectIndex
	}
}
