// Package router keeps the stack of screens the app navigates through.
// Screens ask for navigation by returning one of the messages below.
package router

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vidquiz/internal/screen"
)

type (
	// PushScreenMsg opens Screen on top of the current one.
	PushScreenMsg struct{ Screen screen.Screen }
	// PopScreenMsg goes back one screen. The bottom screen stays.
	PopScreenMsg struct{}
	// ReplaceScreenMsg swaps the top screen, keeping the depth.
	ReplaceScreenMsg struct{ Screen screen.Screen }
	// ResetScreenMsg drops the whole stack and starts over from Screen.
	ResetScreenMsg struct{ Screen screen.Screen }
)

// Router owns the stack. Screens leaving it are closed; screens uncovered
// by a pop are resumed.
type Router struct {
	stack []screen.Screen
}

func New(initial screen.Screen) *Router {
	return &Router{stack: []screen.Screen{initial}}
}

func (r *Router) Push(s screen.Screen) tea.Cmd {
	r.stack = append(r.stack, s)
	return s.Init()
}

func (r *Router) Pop() tea.Cmd {
	n := len(r.stack)
	if n <= 1 {
		return nil
	}
	closeScreen(r.stack[n-1])
	r.stack[n-1] = nil
	r.stack = r.stack[:n-1]
	if rs, ok := r.stack[n-2].(screen.Resumer); ok {
		return rs.Resume()
	}
	return nil
}

func (r *Router) Replace(s screen.Screen) tea.Cmd {
	if n := len(r.stack); n > 0 {
		closeScreen(r.stack[n-1])
		r.stack[n-1] = s
	} else {
		r.stack = []screen.Screen{s}
	}
	return s.Init()
}

func (r *Router) Reset(s screen.Screen) tea.Cmd {
	r.CloseAll()
	r.stack = []screen.Screen{s}
	return s.Init()
}

// CloseAll closes every screen, top first, without emptying the stack.
// The app calls it once on exit.
func (r *Router) CloseAll() {
	for i := len(r.stack) - 1; i >= 0; i-- {
		closeScreen(r.stack[i])
	}
}

// Active is the top screen, or nil for an empty router.
func (r *Router) Active() screen.Screen {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

func (r *Router) Depth() int { return len(r.stack) }

// Update applies navigation messages and hands everything else to the
// active screen.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PushScreenMsg:
		return r.Push(msg.Screen)
	case PopScreenMsg:
		return r.Pop()
	case ReplaceScreenMsg:
		return r.Replace(msg.Screen)
	case ResetScreenMsg:
		return r.Reset(msg.Screen)
	}

	active := r.Active()
	if active == nil {
		return nil
	}
	next, cmd := active.Update(msg)
	r.stack[len(r.stack)-1] = next
	return cmd
}

func (r *Router) View(width, height int) string {
	if active := r.Active(); active != nil {
		return active.View(width, height)
	}
	return ""
}

func closeScreen(s screen.Screen) {
	if c, ok := s.(screen.Closer); ok {
		c.Close()
	}
}
