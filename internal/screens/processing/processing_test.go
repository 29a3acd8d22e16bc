package processing

import (
	"context"
	"errors"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/router"
	"github.com/abhisek/vidquiz/internal/screen"
	"github.com/abhisek/vidquiz/internal/screens"
	"github.com/abhisek/vidquiz/internal/session"
)

type stubScreen struct{ title string }

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }

type fakeFlow struct{ learning *session.Session }

func (f *fakeFlow) Home() screen.Screen                      { return &stubScreen{title: "home"} }
func (f *fakeFlow) Setup() screen.Screen                     { return &stubScreen{title: "setup"} }
func (f *fakeFlow) Processing(screens.Request) screen.Screen { return &stubScreen{title: "processing"} }
func (f *fakeFlow) Report(*session.Session) screen.Screen    { return &stubScreen{title: "report"} }
func (f *fakeFlow) Learning(s *session.Session) screen.Screen {
	f.learning = s
	return &stubScreen{title: "learning"}
}

type fakeAnalyzer struct {
	calls   int
	err     error
	results []quiz.VideoAnalysis
}

func (a *fakeAnalyzer) AnalyzeAll(_ context.Context, urls []string, _ quiz.Language) ([]quiz.VideoAnalysis, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	if a.results != nil {
		return a.results, nil
	}
	out := make([]quiz.VideoAnalysis, len(urls))
	for i, u := range urls {
		out[i] = quiz.VideoAnalysis{URL: u, Segments: []quiz.Segment{{Timestamp: "0:30", Question: "Q", Answers: []string{"a", "b", "c", "d"}}}}
	}
	return out, nil
}

func (a *fakeAnalyzer) GenerateReport(context.Context, []quiz.AnswerRecord, string) (*quiz.Report, error) {
	return nil, errors.New("unused")
}

type fakeSessions struct {
	current *session.Session
}

func (f *fakeSessions) Current() *session.Session { return f.current }

func (f *fakeSessions) StartNew(_ context.Context, videos []string, analysis []quiz.VideoAnalysis, lang quiz.Language) (*session.Session, error) {
	f.current = &session.Session{ID: "s1", Videos: videos, Analysis: analysis, SelectedLanguage: lang}
	return f.current, nil
}

func (f *fakeSessions) Update(_ context.Context, p session.Patch) (*session.Session, error) {
	if p.UserName != nil {
		f.current.UserName = *p.UserName
	}
	return f.current, nil
}

func (f *fakeSessions) Clear(context.Context) error {
	f.current = nil
	return nil
}

type fakeSnapshots struct{ cleared int }

func (f *fakeSnapshots) Clear(context.Context) error {
	f.cleared++
	return nil
}

func newScreen(a *fakeAnalyzer, flow *fakeFlow, sessions *fakeSessions, snaps *fakeSnapshots) *ProcessingScreen {
	return New(flow, a, sessions, snaps, zerolog.Nop(), screens.Request{
		Videos:   []string{"https://youtu.be/4lkq3DgvmJo"},
		Language: quiz.Hindi,
		Name:     "Maya",
	})
}

func TestProcessingStoresSessionAndMovesOn(t *testing.T) {
	flow, sessions, snaps := &fakeFlow{}, &fakeSessions{}, &fakeSnapshots{}
	p := newScreen(&fakeAnalyzer{}, flow, sessions, snaps)

	msg := p.start()()
	_, cmd := p.Update(msg)
	require.NotNil(t, cmd)
	replace, ok := cmd().(router.ReplaceScreenMsg)
	require.True(t, ok)
	assert.Equal(t, "learning", replace.Screen.Title())

	require.NotNil(t, flow.learning)
	assert.Equal(t, "Maya", flow.learning.UserName)
	assert.Equal(t, quiz.Hindi, flow.learning.SelectedLanguage)
	assert.Equal(t, 1, snaps.cleared, "the old queue snapshot is dropped")
}

func TestProcessingErrorAndRetry(t *testing.T) {
	a := &fakeAnalyzer{err: errors.New("error analyzing video x: quota")}
	flow, sessions := &fakeFlow{}, &fakeSessions{}
	p := newScreen(a, flow, sessions, &fakeSnapshots{})

	_, cmd := p.Update(p.start()())
	assert.Nil(t, cmd)
	assert.Contains(t, p.View(100, 30), "quota")
	assert.Nil(t, sessions.current, "nothing stored on failure")

	a.err = nil
	_, cmd = p.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	require.NotNil(t, cmd)
	_, cmd = p.Update(runAttempt(t, cmd))
	require.NotNil(t, cmd)
	assert.Equal(t, 2, a.calls)
	assert.NotNil(t, flow.learning)
}

func TestProcessingRejectsEmptyAnalysis(t *testing.T) {
	a := &fakeAnalyzer{results: []quiz.VideoAnalysis{{URL: "https://youtu.be/4lkq3DgvmJo"}}}
	sessions := &fakeSessions{}
	p := newScreen(a, &fakeFlow{}, sessions, &fakeSnapshots{})

	p.Update(p.start()())
	require.Error(t, p.err)
	var verr *quiz.ValidationError
	assert.ErrorAs(t, p.err, &verr)
	assert.Nil(t, sessions.current)
}

func TestProcessingIgnoresResultsAfterClose(t *testing.T) {
	flow := &fakeFlow{}
	p := newScreen(&fakeAnalyzer{}, flow, &fakeSessions{}, &fakeSnapshots{})
	msg := p.start()()

	p.Close()
	_, cmd := p.Update(msg)
	assert.Nil(t, cmd)
}

// runAttempt runs the retry command and returns its analysis result.
func runAttempt(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	msg := cmd()
	ready, ok := msg.(sessionReadyMsg)
	require.True(t, ok, "expected sessionReadyMsg, got %T", msg)
	return ready
}
