// Package layout draws the chrome around every screen: a title rule on top
// and key hints at the bottom.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/vidquiz/internal/ui/theme"
)

// The watch screen needs room for the progress bar plus four answers.
const (
	MinWidth  = 64
	MinHeight = 20
)

type KeyHint struct {
	Key         string
	Description string
}

// Score is the running tally for the current run.
type Score struct {
	Correct  int
	Answered int
}

// Frame is the chrome for one screen. A nil Score hides the tally.
type Frame struct {
	Title string
	Score *Score
	Hints []KeyHint
}

func TooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// SizeWarning fills the terminal with a request to resize.
func SizeWarning(width, height int) string {
	msg := fmt.Sprintf("vidquiz needs at least %d×%d\n(currently %d×%d)", MinWidth, MinHeight, width, height)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.Warning).Align(lipgloss.Center).Render(msg))
}

// Render lays out header, body and footer. body receives the space left
// between the two bars.
func (f Frame) Render(width, height int, body func(width, height int) string) string {
	header := f.header(width)
	footer := f.footer(width)

	bodyHeight := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := lipgloss.NewStyle().
		Width(width).
		Height(bodyHeight).
		MaxHeight(bodyHeight).
		Render(body(width, bodyHeight))

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (f Frame) header(width int) string {
	brand := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("▶ vidquiz")
	title := ""
	if f.Title != "" {
		title = lipgloss.NewStyle().Foreground(theme.TextDim).Render("  ·  ") +
			lipgloss.NewStyle().Foreground(theme.Text).Render(f.Title)
	}
	tally := ""
	if f.Score != nil {
		tally = lipgloss.NewStyle().Foreground(theme.Success).Render(fmt.Sprintf("✓ %d", f.Score.Correct)) +
			lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("/%d", f.Score.Answered))
	}

	left := brand + title
	gap := max(width-2-lipgloss.Width(left)-lipgloss.Width(tally), 1)
	line := " " + left + strings.Repeat(" ", gap) + tally

	return lipgloss.NewStyle().
		Width(width).
		MaxWidth(width).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(theme.Border).
		Render(line)
}

func (f Frame) footer(width int) string {
	key := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)
	desc := lipgloss.NewStyle().Foreground(theme.TextDim)

	parts := make([]string, 0, len(f.Hints))
	for _, h := range f.Hints {
		parts = append(parts, key.Render(h.Key)+" "+desc.Render(h.Description))
	}

	return lipgloss.NewStyle().
		Width(width).
		MaxWidth(width).
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(theme.Border).
		Render(" " + strings.Join(parts, desc.Render("  •  ")))
}
