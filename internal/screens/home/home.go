package home

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vidquiz/internal/router"
	"github.com/abhisek/vidquiz/internal/screen"
	"github.com/abhisek/vidquiz/internal/screens"
	"github.com/abhisek/vidquiz/internal/session"
	"github.com/abhisek/vidquiz/internal/ui/components"
)

const (
	itemContinue = iota
	itemNew
	itemExit
)

var menuLabels = []string{"CONTINUE", "NEW SESSION", "EXIT"}

// HomeScreen is the main menu: resume the stored session, start a new one,
// or leave.
type HomeScreen struct {
	flow       screens.Flow
	sessions   screens.Sessions
	canAnalyze bool

	menu     components.Menu
	disabled map[int]bool
	current  *session.Session
}

var (
	_ screen.Screen  = (*HomeScreen)(nil)
	_ screen.Resumer = (*HomeScreen)(nil)
)

// New builds the home screen. canAnalyze is false when no analysis
// backend is configured, which disables new sessions.
func New(flow screens.Flow, sessions screens.Sessions, canAnalyze bool) *HomeScreen {
	h := &HomeScreen{flow: flow, sessions: sessions, canAnalyze: canAnalyze}
	h.reload()
	return h
}

// reload reads the stored session again and rebuilds the menu around it.
func (h *HomeScreen) reload() {
	current := h.sessions.Current()
	if current != nil && len(current.Analysis) == 0 {
		current = nil
	}
	h.current = current
	h.disabled = map[int]bool{
		itemContinue: current == nil,
		itemNew:      !h.canAnalyze,
	}

	flow := h.flow
	h.menu = components.NewMenu([]components.MenuItem{
		{Label: menuLabels[itemContinue], Disabled: h.disabled[itemContinue], Action: func() tea.Cmd {
			return func() tea.Msg {
				if current.Stage() == session.StageReport {
					return router.PushScreenMsg{Screen: flow.Report(current)}
				}
				return router.PushScreenMsg{Screen: flow.Learning(current)}
			}
		}},
		{Label: menuLabels[itemNew], Disabled: h.disabled[itemNew], Action: func() tea.Cmd {
			return func() tea.Msg { return router.PushScreenMsg{Screen: flow.Setup()} }
		}},
		{Label: menuLabels[itemExit], Action: func() tea.Cmd { return tea.Quit }},
	})
}

// Resume picks up progress made on the screens above.
func (h *HomeScreen) Resume() tea.Cmd {
	h.reload()
	return nil
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	compact := height < 24
	cw := min(max(width-6, 30), 64)

	sections := []string{
		renderBrand(cw, compact),
		lipgloss.PlaceHorizontal(cw, lipgloss.Center, h.headline().render()),
		renderSessionCard(h.current, cw),
		renderMenu(menuLabels, h.menu.Selected, h.disabled, cw),
	}
	sep := "\n\n"
	if compact {
		sep = "\n"
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, sep))
}

func (h *HomeScreen) headline() headline {
	switch {
	case !h.canAnalyze && h.current == nil:
		return headlineNoAnalyzer
	case h.current != nil:
		return headlineResume
	default:
		return headlineReady
	}
}

func (h *HomeScreen) Title() string {
	return "Home"
}
