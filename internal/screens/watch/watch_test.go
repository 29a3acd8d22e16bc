package watch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vidquiz/internal/learning"
	"github.com/abhisek/vidquiz/internal/orchestrator"
	"github.com/abhisek/vidquiz/internal/platform"
	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/router"
	"github.com/abhisek/vidquiz/internal/screen"
	"github.com/abhisek/vidquiz/internal/screens"
	"github.com/abhisek/vidquiz/internal/session"
	"github.com/abhisek/vidquiz/internal/store"
)

type stubScreen struct{ title string }

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }

type fakeFlow struct{ report *session.Session }

func (f *fakeFlow) Home() screen.Screen                      { return &stubScreen{title: "home"} }
func (f *fakeFlow) Setup() screen.Screen                     { return &stubScreen{title: "setup"} }
func (f *fakeFlow) Processing(screens.Request) screen.Screen { return &stubScreen{title: "processing"} }
func (f *fakeFlow) Learning(*session.Session) screen.Screen  { return &stubScreen{title: "learning"} }
func (f *fakeFlow) Report(s *session.Session) screen.Screen {
	f.report = s
	return &stubScreen{title: "report"}
}

type quietNarrator struct{}

func (quietNarrator) Add(context.Context, string) error { return nil }
func (quietNarrator) Clear(context.Context) error       { return nil }

func setup(t *testing.T, strict bool) (*WatchScreen, *fakeFlow, *session.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	st, err := store.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sessions := session.NewStore(st.KV())
	sess, err := sessions.StartNew(context.Background(), []string{"https://youtu.be/aaaaaaaaaaa"}, []quiz.VideoAnalysis{{
		URL: "https://youtu.be/aaaaaaaaaaa",
		Segments: []quiz.Segment{{
			Timestamp:    "0:01",
			Question:     "What colour is the sky?",
			Answers:      []string{"green", "red", "blue", "pink"},
			CorrectIndex: 2,
			Praise:       "Well spotted",
			Explanation:  "Not that one",
			DetailedExplanation: quiz.DetailedExplanation{
				English: "Sunlight scatters off the air",
			},
		}},
	}}, quiz.English)
	require.NoError(t, err)

	flow := &fakeFlow{}
	w := New(flow, learning.Deps{
		Sessions:     sessions,
		KV:           st.KV(),
		Narrator:     quietNarrator{},
		Platform:     platform.New(strict),
		Logger:       zerolog.Nop(),
		PlaybackRate: 100,
		Options: orchestrator.Options{
			SettleDelay:     time.Millisecond,
			TransitionDelay: time.Millisecond,
			WatchInterval:   5 * time.Millisecond,
			WatchDebounce:   -1,
		},
	}, sess)
	t.Cleanup(w.Close)

	w.Update(w.startRun()())
	require.NotNil(t, w.run)
	return w, flow, sessions
}

func tick(w *WatchScreen) tea.Cmd {
	_, cmd := w.Update(pollTickMsg(time.Now()))
	return cmd
}

func waitUntil(t *testing.T, w *WatchScreen, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		tick(w)
		return cond()
	}, 5*time.Second, 5*time.Millisecond)
}

func TestAnswerFlowReachesReport(t *testing.T) {
	w, flow, _ := setup(t, false)
	assert.Equal(t, "Video 1 of 1", w.Title())

	waitUntil(t, w, func() bool { return w.state.ShowQuestion && w.choice.Enabled })
	assert.Contains(t, w.View(100, 40), "What colour is the sky?")

	_, cmd := w.Update(tea.KeyPressMsg{Code: '3', Text: "3"})
	require.NotNil(t, cmd)
	_, cmd = w.Update(cmd())
	require.NotNil(t, cmd)
	done, ok := cmd().(answerDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)
	w.Update(done)

	var next tea.Cmd
	require.Eventually(t, func() bool {
		select {
		case <-w.run.Done():
			next = tick(w)
			return true
		default:
			tick(w)
			return false
		}
	}, 5*time.Second, 5*time.Millisecond)

	replace, ok := next().(router.ReplaceScreenMsg)
	require.True(t, ok)
	assert.Equal(t, "report", replace.Screen.Title())
	require.NotNil(t, flow.report)
	assert.True(t, flow.report.IsComplete)
	require.Len(t, flow.report.FinalHistory, 1)
	assert.True(t, flow.report.FinalHistory[0].IsCorrect)
}

func TestWrongAnswerOpensExplanation(t *testing.T) {
	w, _, _ := setup(t, false)
	waitUntil(t, w, func() bool { return w.state.ShowQuestion && w.choice.Enabled })

	w.Update(w.answer(0)())
	_, ok := w.run.Orchestrator().Explanation()
	require.True(t, ok)
	assert.Contains(t, w.View(100, 40), "Sunlight scatters")

	correct, answered := w.Score()
	assert.Equal(t, 0, correct)
	assert.Equal(t, 1, answered)

	_, cmd := w.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	w.Update(cmd())
	_, ok = w.run.Orchestrator().Explanation()
	assert.False(t, ok)
}

func TestStrictPlatformWaitsForTap(t *testing.T) {
	w, _, _ := setup(t, true)
	waitUntil(t, w, func() bool { return w.run.Orchestrator().AwaitingTap() })
	assert.Contains(t, w.View(100, 40), "Start question")
	assert.Equal(t, "Enter", w.KeyHints()[0].Key)

	_, cmd := w.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	w.Update(cmd())
	assert.True(t, w.deps.Platform.Unlocked())
	waitUntil(t, w, func() bool { return w.state.ShowQuestion && w.choice.Enabled })
}

func TestBackIsBlockedAfterFirstAnswer(t *testing.T) {
	w, _, sessions := setup(t, false)

	_, cmd := w.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	require.NotNil(t, cmd)
	_, ok := cmd().(router.ResetScreenMsg)
	assert.True(t, ok, "back is allowed before answering")

	waitUntil(t, w, func() bool { return w.state.ShowQuestion && w.choice.Enabled })
	w.Update(w.answer(0)())
	require.Eventually(t, func() bool {
		cur := sessions.Current()
		return cur != nil && len(cur.Progress.History) == 1
	}, 5*time.Second, 5*time.Millisecond)

	_, cmd = w.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Nil(t, cmd)
	assert.Contains(t, w.notice, "can't go back")
}

func TestStartErrorIsShown(t *testing.T) {
	w := New(&fakeFlow{}, learning.Deps{Logger: zerolog.Nop()}, &session.Session{})
	w.Update(runStartedMsg{Err: fmt.Errorf("no videos")})
	assert.Contains(t, w.View(80, 20), "no videos")
	assert.Equal(t, "Learning", w.Title())
}
