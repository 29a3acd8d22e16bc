package app

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/learning"
	"github.com/abhisek/vidquiz/internal/orchestrator"
	"github.com/abhisek/vidquiz/internal/platform"
	"github.com/abhisek/vidquiz/internal/queue"
	"github.com/abhisek/vidquiz/internal/router"
	"github.com/abhisek/vidquiz/internal/screen"
	"github.com/abhisek/vidquiz/internal/screens"
	"github.com/abhisek/vidquiz/internal/screens/home"
	"github.com/abhisek/vidquiz/internal/screens/processing"
	"github.com/abhisek/vidquiz/internal/screens/report"
	"github.com/abhisek/vidquiz/internal/screens/setup"
	"github.com/abhisek/vidquiz/internal/screens/watch"
	"github.com/abhisek/vidquiz/internal/screens/welcome"
	"github.com/abhisek/vidquiz/internal/session"
	"github.com/abhisek/vidquiz/internal/store"
	"github.com/abhisek/vidquiz/internal/ui/layout"
)

// Options holds the dependencies the TUI is built from.
type Options struct {
	Sessions *session.Store
	KV       store.KV
	// Analyzer is nil when neither an LLM provider nor a backend is
	// configured. New sessions are disabled then.
	Analyzer screens.Analyzer
	Narrator orchestrator.Narrator
	Platform *platform.Context
	Logger   zerolog.Logger

	PlaybackRate float64
	Orchestrator orchestrator.Options

	// Defaults pre-fill the setup form.
	Defaults    screens.Request
	SkipWelcome bool
}

// flow builds every screen from the shared Options.
type flow struct {
	opts      Options
	snapshots *queue.Persister
}

var _ screens.Flow = (*flow)(nil)

func newFlow(opts Options) *flow {
	f := &flow{opts: opts}
	if opts.KV != nil {
		f.snapshots = queue.NewPersister(opts.KV, queue.WithLogger(opts.Logger))
	}
	return f
}

func (f *flow) Home() screen.Screen {
	return home.New(f, f.opts.Sessions, f.opts.Analyzer != nil)
}

func (f *flow) Setup() screen.Screen {
	return setup.New(f, f.opts.Defaults)
}

func (f *flow) Processing(req screens.Request) screen.Screen {
	return processing.New(f, f.opts.Analyzer, f.opts.Sessions, f.snapshotsOrNop(), f.opts.Logger, req)
}

func (f *flow) Learning(sess *session.Session) screen.Screen {
	return watch.New(f, learning.Deps{
		Sessions:     f.opts.Sessions,
		KV:           f.opts.KV,
		Narrator:     f.opts.Narrator,
		Platform:     f.opts.Platform,
		Logger:       f.opts.Logger,
		PlaybackRate: f.opts.PlaybackRate,
		Options:      f.opts.Orchestrator,
	}, sess)
}

func (f *flow) Report(sess *session.Session) screen.Screen {
	return report.New(f, f.opts.Analyzer, f.opts.Sessions, f.snapshotsOrNop(), f.opts.Logger, sess)
}

func (f *flow) snapshotsOrNop() screens.Snapshots {
	if f.snapshots == nil {
		return nopSnapshots{}
	}
	return f.snapshots
}

type nopSnapshots struct{}

func (nopSnapshots) Clear(context.Context) error { return nil }

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	width  int
	height int
}

// newAppModel creates a new AppModel starting at the welcome splash.
func newAppModel(opts Options) AppModel {
	f := newFlow(opts)
	var initial screen.Screen
	if opts.SkipWelcome {
		initial = f.Home()
	} else {
		initial = welcome.New(f.Home)
	}
	return AppModel{
		router: router.New(initial),
	}
}

func (m AppModel) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if bh, ok := m.router.Active().(screen.BackHandler); ok && bh.HandlesBack() {
				break
			}
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.TooSmall(m.width, m.height) {
		v.SetContent(layout.SizeWarning(m.width, m.height))
		return v
	}

	frame := layout.Frame{Hints: m.hints()}
	if active := m.router.Active(); active != nil {
		frame.Title = active.Title()
		if sp, ok := active.(screen.ScoreProvider); ok {
			correct, answered := sp.Score()
			frame.Score = &layout.Score{Correct: correct, Answered: answered}
		}
	}

	v.SetContent(frame.Render(m.width, m.height, m.router.View))
	return v
}

// hints come from the active screen when it has its own, with quit always
// listed last.
func (m AppModel) hints() []layout.KeyHint {
	quit := layout.KeyHint{Key: "Ctrl+C", Description: "Quit"}
	if kp, ok := m.router.Active().(screen.KeyHintProvider); ok {
		return append(kp.KeyHints(), quit)
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}, quit}
	}
	return []layout.KeyHint{{Key: "↑↓", Description: "Navigate"}, {Key: "Enter", Description: "Select"}, quit}
}

// Run starts the Bubble Tea program. Screens still holding a learning run
// are closed on exit so progress is flushed.
func Run(opts Options) error {
	m := newAppModel(opts)
	p := tea.NewProgram(m)
	_, err := p.Run()
	m.router.CloseAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
