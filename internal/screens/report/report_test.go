package report

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

type fakeFlow struct{}

func (fakeFlow) Home() screen.Screen                      { return &stubScreen{title: "home"} }
func (fakeFlow) Setup() screen.Screen                     { return &stubScreen{title: "setup"} }
func (fakeFlow) Processing(screens.Request) screen.Screen { return &stubScreen{title: "processing"} }
func (fakeFlow) Learning(*session.Session) screen.Screen  { return &stubScreen{title: "learning"} }
func (fakeFlow) Report(*session.Session) screen.Screen    { return &stubScreen{title: "report"} }

type fakeAnalyzer struct {
	err      error
	calls    int
	gotName  string
	gotItems int
}

func (a *fakeAnalyzer) AnalyzeAll(context.Context, []string, quiz.Language) ([]quiz.VideoAnalysis, error) {
	return nil, errors.New("unused")
}

func (a *fakeAnalyzer) GenerateReport(_ context.Context, history []quiz.AnswerRecord, name string) (*quiz.Report, error) {
	a.calls++
	a.gotName, a.gotItems = name, len(history)
	if a.err != nil {
		return nil, a.err
	}
	return &quiz.Report{
		Strengths:       []string{"Spotted the key idea"},
		Improvements:    []string{"Slow down on numbers"},
		Recommendations: []string{"Rewatch the middle section"},
	}, nil
}

type fakeStore struct{ cleared int }

func (f *fakeStore) Current() *session.Session { return nil }
func (f *fakeStore) StartNew(context.Context, []string, []quiz.VideoAnalysis, quiz.Language) (*session.Session, error) {
	return nil, errors.New("unused")
}
func (f *fakeStore) Update(context.Context, session.Patch) (*session.Session, error) {
	return nil, errors.New("unused")
}
func (f *fakeStore) Clear(context.Context) error {
	f.cleared++
	return nil
}

func testSession() *session.Session {
	return &session.Session{
		UserName:   "Maya",
		IsComplete: true,
		FinalHistory: []quiz.AnswerRecord{
			{Question: "Sky colour?", IsCorrect: true, UserAnswer: "blue", CorrectAnswer: "blue"},
			{Question: "Grass colour?", IsCorrect: false, UserAnswer: "red", CorrectAnswer: "green"},
		},
	}
}

func TestReportScreen_GeneratesAndDisplays(t *testing.T) {
	a := &fakeAnalyzer{}
	s := New(fakeFlow{}, a, &fakeStore{}, &fakeStore{}, zerolog.Nop(), testSession())

	s.Update(s.generate()())
	assert.Equal(t, "Maya", a.gotName)
	assert.Equal(t, 2, a.gotItems)

	view := s.View(100, 40)
	assert.Contains(t, view, "Well done, Maya!")
	assert.Contains(t, view, "Spotted the key idea")
	assert.Contains(t, view, "Rewatch the middle section")
	assert.Contains(t, view, "answer: green")

	correct, answered := s.Score()
	assert.Equal(t, 1, correct)
	assert.Equal(t, 2, answered)
}

func TestReportScreen_ErrorAndRetry(t *testing.T) {
	a := &fakeAnalyzer{err: errors.New("quota exceeded")}
	s := New(fakeFlow{}, a, &fakeStore{}, &fakeStore{}, zerolog.Nop(), testSession())

	s.Update(s.generate()())
	assert.Contains(t, s.View(100, 40), "quota exceeded")
	assert.Equal(t, "R", s.KeyHints()[0].Key)

	a.err = nil
	_, cmd := s.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	require.NotNil(t, cmd)
	s.Update(s.generate()())
	require.NotNil(t, s.report)
	assert.Nil(t, s.err)
}

func TestReportScreen_StaleResultIgnored(t *testing.T) {
	s := New(fakeFlow{}, &fakeAnalyzer{}, &fakeStore{}, &fakeStore{}, zerolog.Nop(), testSession())
	stale := s.generate()()
	s.generate()
	s.Update(stale)
	assert.Nil(t, s.report)
}

func TestReportScreen_NewSessionClearsState(t *testing.T) {
	sessions, snaps := &fakeStore{}, &fakeStore{}
	s := New(fakeFlow{}, &fakeAnalyzer{}, sessions, snaps, zerolog.Nop(), testSession())

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'n', Text: "n"})
	require.NotNil(t, cmd)
	msg, ok := cmd().(router.ResetScreenMsg)
	require.True(t, ok)
	assert.Equal(t, "home", msg.Screen.Title())
	assert.Equal(t, 1, sessions.cleared)
	assert.Equal(t, 1, snaps.cleared)
}

func TestReportScreen_EscKeepsSession(t *testing.T) {
	sessions := &fakeStore{}
	s := New(fakeFlow{}, nil, sessions, &fakeStore{}, zerolog.Nop(), testSession())
	assert.Nil(t, s.Init(), "no analyzer means no report request")

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	require.NotNil(t, cmd)
	_, ok := cmd().(router.ResetScreenMsg)
	assert.True(t, ok)
	assert.Equal(t, 0, sessions.cleared)
	assert.Contains(t, s.View(100, 40), "Grass colour?")
}
