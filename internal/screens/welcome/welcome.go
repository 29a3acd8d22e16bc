// Package welcome is the splash shown at startup: a small TV tunes in
// from static and the play button lights up.
package welcome

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vidquiz/internal/router"
	"github.com/abhisek/vidquiz/internal/screen"
	"github.com/abhisek/vidquiz/internal/ui/theme"
)

const (
	frameInterval = 120 * time.Millisecond
	staticFrames  = 6
	tunedFrames   = 14
)

// screen rows of the TV; the picture goes between them
const (
	tvTop    = "╭────────────────────╮"
	tvBottom = "╰──────────┬┬────────╯"
	tvStand  = "        ───┴┴───"
	tvWidth  = 18
)

var noise = []rune("░▒▓ ·:")

var picture = []string{
	"                  ",
	"       ▶  vidquiz ",
	"                  ",
	"  watch · listen  ",
	"     · answer     ",
}

type frameMsg struct{}

// WelcomeScreen plays the splash and then replaces itself with the
// screen from next. Any key skips ahead.
type WelcomeScreen struct {
	next  func() screen.Screen
	frame int
	done  bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

func New(next func() screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{next: next}
}

func (w *WelcomeScreen) Title() string { return "" }

func (w *WelcomeScreen) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg.(type) {
	case frameMsg:
		if w.done {
			return w, nil
		}
		w.frame++
		if w.frame >= tunedFrames {
			return w, w.finish()
		}
		return w, tick()
	case tea.KeyPressMsg:
		return w, w.finish()
	}
	return w, nil
}

// finish hands over exactly once.
func (w *WelcomeScreen) finish() tea.Cmd {
	if w.done {
		return nil
	}
	w.done = true
	next := w.next()
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

func (w *WelcomeScreen) tuned() bool { return w.frame >= staticFrames }

func (w *WelcomeScreen) View(width, height int) string {
	frame := lipgloss.NewStyle().Foreground(theme.Border)

	rows := make([]string, len(picture))
	for i := range picture {
		if w.tuned() {
			rows[i] = w.pictureRow(i)
		} else {
			rows[i] = lipgloss.NewStyle().Foreground(theme.TextDim).Render(staticRow(w.frame, i))
		}
	}

	var b strings.Builder
	b.WriteString(frame.Render(tvTop))
	for _, r := range rows {
		b.WriteString("\n" + frame.Render("│ ") + r + frame.Render(" │"))
	}
	b.WriteString("\n" + frame.Render(tvBottom))
	b.WriteString("\n" + frame.Render(tvStand))

	if w.tuned() {
		b.WriteString("\n\n" + theme.Hint.Render("press any key"))
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}

func (w *WelcomeScreen) pictureRow(i int) string {
	row := picture[i]
	if i != 1 {
		return lipgloss.NewStyle().Foreground(theme.Secondary).Render(row)
	}
	// the play glyph blinks while the title stays lit
	play := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	if w.frame%2 == 1 {
		play = play.Foreground(theme.Accent)
	}
	idx := strings.Index(row, "▶")
	return row[:idx] + play.Render("▶") +
		lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(row[idx+len("▶"):])
}

// staticRow is deterministic so the noise is stable for a given frame.
func staticRow(frame, row int) string {
	r := make([]rune, tvWidth)
	for i := range r {
		r[i] = noise[(i*7+row*13+frame*5+i*i)%len(noise)]
	}
	return string(r)
}
