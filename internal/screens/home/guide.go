package home

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/session"
	"github.com/abhisek/vidquiz/internal/ui/theme"
)

const brandFull = ` ██╗   ██╗██╗██████╗  ██████╗ ██╗   ██╗██╗███████╗
 ██║   ██║██║██╔══██╗██╔═══██╗██║   ██║██║╚══███╔╝
 ╚██╗ ██╔╝██║██║  ██║██║▄▄ ██║██║   ██║██║ ███╔╝
  ╚████╔╝ ██║██████╔╝╚██████╔╝╚██████╔╝██║███████╗
   ╚═══╝  ╚═╝╚═════╝  ╚══▀▀═╝  ╚═════╝ ╚═╝╚══════╝`

const brandCompact = "▶ V I D Q U I Z"

// headline is the one-line state shown under the brand.
type headline int

const (
	headlineReady headline = iota
	headlineResume
	headlineNoAnalyzer
)

func (h headline) render() string {
	switch h {
	case headlineResume:
		return lipgloss.NewStyle().Foreground(theme.ArcadeYellow).Render("❚❚ Paused mid-session. Pick up where you left off.")
	case headlineNoAnalyzer:
		return lipgloss.NewStyle().Foreground(theme.Warning).Render("⚠ No analyzer: set an LLM API key or --backend to add videos")
	}
	return lipgloss.NewStyle().Foreground(theme.Secondary).Render("Paste a few YouTube links and get quizzed while you watch.")
}

func renderBrand(cw int, compact bool) string {
	art := brandFull
	if compact || cw < lipgloss.Width(brandFull) {
		art = brandCompact
	}
	return lipgloss.NewStyle().Width(cw).Align(lipgloss.Center).
		Render(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(art))
}

// renderSessionCard lists the stored session's videos with how far the
// learner got in each.
func renderSessionCard(sess *session.Session, cw int) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	card := lipgloss.NewStyle().
		Width(cw).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)

	if sess == nil {
		return card.Align(lipgloss.Center).Render(dim.Render("NO SAVED SESSION"))
	}

	name := sess.UserName
	if name == "" {
		name = "learner"
	}
	head := lipgloss.NewStyle().Foreground(theme.ArcadeYellow).Bold(true).Render(strings.ToUpper(name)) +
		dim.Render(fmt.Sprintf("  ·  %s  ·  %d of %d correct",
			sess.SelectedLanguage.DisplayName(), quiz.Score(sess.Progress.History), len(sess.Progress.History)))

	rows := []string{head, ""}
	urlWidth := max(cw-24, 12)
	for i, url := range sess.Videos {
		rows = append(rows, videoRow(sess, i, url, urlWidth))
	}
	return card.Render(strings.Join(rows, "\n"))
}

func videoRow(sess *session.Session, i int, url string, urlWidth int) string {
	total := 0
	if i < len(sess.Analysis) {
		total = len(sess.Analysis[i].Segments)
	}
	answered, correct := 0, 0
	for _, r := range sess.Progress.History {
		if r.VideoIndex == i {
			answered++
			if r.IsCorrect {
				correct++
			}
		}
	}

	cur := sess.Progress.CurrentVideoIndex
	mark := lipgloss.NewStyle().Foreground(theme.TextDim).Render("·")
	switch {
	case sess.IsComplete || i < cur:
		mark = theme.Correct.Render("✓")
	case i == cur:
		mark = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("▶")
	}

	link := lipgloss.NewStyle().Foreground(theme.Text).Width(urlWidth).MaxWidth(urlWidth).
		Render(strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "www."))
	tally := lipgloss.NewStyle().Foreground(theme.ArcadeCyan).
		Render(fmt.Sprintf("%d/%d  ✓%d", answered, total, correct))
	return fmt.Sprintf("%s %d  %s %s", mark, i+1, link, tally)
}

// renderMenu draws the entries as channel buttons. Disabled entries stay
// visible so the learner sees what is missing.
func renderMenu(labels []string, selected int, disabled map[int]bool, cw int) string {
	base := lipgloss.NewStyle().Width(24).Padding(0, 1)
	lines := make([]string, len(labels))
	for i, label := range labels {
		text := fmt.Sprintf("CH%d  %s", i+1, label)
		switch {
		case disabled[i]:
			lines[i] = base.Foreground(theme.Border).Strikethrough(true).Render(text)
		case i == selected:
			lines[i] = base.Background(theme.ArcadeYellow).Foreground(theme.BgDark).Bold(true).Render(text)
		default:
			lines[i] = base.Foreground(theme.Text).Render(text)
		}
	}
	return lipgloss.NewStyle().Width(cw).Align(lipgloss.Center).Render(strings.Join(lines, "\n"))
}
