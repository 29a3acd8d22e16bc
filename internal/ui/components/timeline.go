package components

import (
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/vidquiz/internal/ui/theme"
)

// Timeline is the playback bar. Marks are question timestamps; the first
// Asked of them are drawn as answered.
type Timeline struct {
	Label    string
	Position time.Duration
	Length   time.Duration
	Marks    []time.Duration
	Asked    int
	Width    int
}

func (t Timeline) cell(d time.Duration, cells int) int {
	if t.Length <= 0 || cells <= 1 {
		return 0
	}
	c := int(int64(cells-1) * int64(d) / int64(t.Length))
	return min(max(c, 0), cells-1)
}

func (t Timeline) View() string {
	label := ""
	if t.Label != "" {
		label = lipgloss.NewStyle().Foreground(theme.Text).Render(t.Label) + "  "
	}
	cells := max(t.Width-lipgloss.Width(label), 8)

	marks := make(map[int]bool, len(t.Marks))
	for i, m := range t.Marks {
		c := t.cell(m, cells)
		// a later pending mark wins over an asked one in the same cell
		marks[c] = marks[c] || i >= t.Asked
	}
	head := t.cell(t.Position, cells)

	played := lipgloss.NewStyle().Foreground(theme.Secondary)
	ahead := lipgloss.NewStyle().Foreground(theme.Border)
	pending := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)
	asked := lipgloss.NewStyle().Foreground(theme.Success)

	var b strings.Builder
	b.WriteString(label)
	for c := range cells {
		pend, isMark := marks[c]
		switch {
		case c == head:
			b.WriteString(played.Bold(true).Render("●"))
		case isMark && pend:
			b.WriteString(pending.Render("◆"))
		case isMark:
			b.WriteString(asked.Render("◇"))
		case c < head:
			b.WriteString(played.Render("━"))
		default:
			b.WriteString(ahead.Render("─"))
		}
	}
	return b.String()
}
