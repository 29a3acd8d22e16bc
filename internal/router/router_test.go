package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vidquiz/internal/screen"
)

type fakeScreen struct {
	title   string
	inits   int
	closed  int
	resumed int
}

func (s *fakeScreen) Init() tea.Cmd                           { s.inits++; return nil }
func (s *fakeScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *fakeScreen) View(int, int) string                    { return s.title }
func (s *fakeScreen) Title() string                           { return s.title }
func (s *fakeScreen) Close()                                  { s.closed++ }

type resumableScreen struct{ fakeScreen }

type resumedMsg struct{}

func (s *resumableScreen) Resume() tea.Cmd {
	s.resumed++
	return func() tea.Msg { return resumedMsg{} }
}

func titles(r *Router) []string {
	out := make([]string, 0, len(r.stack))
	for _, s := range r.stack {
		out = append(out, s.Title())
	}
	return out
}

func TestNavigationMessages(t *testing.T) {
	home := &fakeScreen{title: "home"}
	setup := &fakeScreen{title: "setup"}
	processing := &fakeScreen{title: "processing"}
	watch := &fakeScreen{title: "watch"}

	r := New(home)
	r.Update(PushScreenMsg{Screen: setup})
	assert.Equal(t, []string{"home", "setup"}, titles(r))
	assert.Equal(t, 1, setup.inits)

	r.Update(ReplaceScreenMsg{Screen: processing})
	assert.Equal(t, []string{"home", "processing"}, titles(r))
	assert.Equal(t, 1, setup.closed, "replaced screen is closed")

	r.Update(ReplaceScreenMsg{Screen: watch})
	assert.Equal(t, 2, r.Depth())
	assert.Equal(t, "watch", r.View(80, 24))

	r.Update(PopScreenMsg{})
	assert.Equal(t, []string{"home"}, titles(r))
	assert.Equal(t, 1, watch.closed)

	r.Update(PopScreenMsg{})
	assert.Equal(t, 1, r.Depth(), "the bottom screen stays")
	assert.Zero(t, home.closed)
}

func TestPopResumesUncoveredScreen(t *testing.T) {
	home := &resumableScreen{fakeScreen{title: "home"}}
	r := New(home)
	r.Push(&fakeScreen{title: "report"})

	cmd := r.Pop()
	require.NotNil(t, cmd)
	assert.Equal(t, resumedMsg{}, cmd())
	assert.Equal(t, 1, home.resumed)
}

func TestResetClosesEverything(t *testing.T) {
	bottom := &fakeScreen{title: "home"}
	top := &fakeScreen{title: "watch"}
	r := New(bottom)
	r.Push(top)

	fresh := &fakeScreen{title: "fresh"}
	r.Update(ResetScreenMsg{Screen: fresh})

	assert.Equal(t, []string{"fresh"}, titles(r))
	assert.Equal(t, 1, fresh.inits)
	assert.Equal(t, 1, bottom.closed)
	assert.Equal(t, 1, top.closed)
}

func TestCloseAll(t *testing.T) {
	a, b := &fakeScreen{title: "a"}, &fakeScreen{title: "b"}
	r := New(a)
	r.Push(b)
	r.CloseAll()
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
	assert.Equal(t, 2, r.Depth())
}

func TestEmptyRouter(t *testing.T) {
	r := &Router{}
	assert.Nil(t, r.Active())
	assert.Equal(t, "", r.View(10, 10))
	assert.Nil(t, r.Update(tea.KeyPressMsg{Code: 'x'}))

	s := &fakeScreen{title: "only"}
	r.Replace(s)
	assert.Equal(t, []string{"only"}, titles(r))
}
