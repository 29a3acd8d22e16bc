package components

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiChoiceDigitShortcut(t *testing.T) {
	m := NewMultiChoice([]string{"a", "b", "c", "d"})
	m.Enabled = true

	m, cmd := m.Update(tea.KeyPressMsg{Code: '3', Text: "3"})
	require.NotNil(t, cmd)
	assert.Equal(t, ChoiceMsg{Index: 2}, cmd())
	assert.Equal(t, 2, m.Chosen)

	_, cmd = m.Update(tea.KeyPressMsg{Code: '1', Text: "1"})
	assert.Nil(t, cmd, "a submitted choice is final")
}

func TestMultiChoiceDisabled(t *testing.T) {
	m := NewMultiChoice([]string{"a", "b", "c", "d"})

	_, cmd := m.Update(tea.KeyPressMsg{Code: '2', Text: "2"})
	assert.Nil(t, cmd)
}

func TestMultiChoiceArrowsAndEnter(t *testing.T) {
	m := NewMultiChoice([]string{"a", "b", "c", "d"})
	m.Enabled = true

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, ChoiceMsg{Index: 1}, cmd())
}

func TestMultiChoiceView(t *testing.T) {
	m := NewMultiChoice([]string{"red", "green", "blue", "cyan"})
	view := m.View()
	for _, want := range []string{"1)  red", "2)  green", "3)  blue", "4)  cyan"} {
		assert.Contains(t, view, want)
	}
	assert.Equal(t, 4, strings.Count(view, "\n"))
}

func TestTimelineMarks(t *testing.T) {
	tl := Timeline{
		Position: 30 * time.Second,
		Length:   100 * time.Second,
		Marks:    []time.Duration{10 * time.Second, 60 * time.Second, 90 * time.Second},
		Asked:    1,
		Width:    40,
	}
	view := tl.View()
	assert.Equal(t, 40, lipgloss.Width(view))
	assert.Equal(t, 1, strings.Count(view, "●"))
	assert.Equal(t, 1, strings.Count(view, "◇"), "asked marks")
	assert.Equal(t, 2, strings.Count(view, "◆"), "pending marks")
}

func TestTimelineClampsPosition(t *testing.T) {
	for _, pos := range []time.Duration{-time.Second, 0, 5 * time.Minute} {
		view := Timeline{Label: "x", Position: pos, Length: time.Minute, Width: 30}.View()
		assert.Equal(t, 1, strings.Count(view, "●"), "pos %s", pos)
	}
	// unknown length parks the head at the start
	view := Timeline{Position: time.Minute, Width: 10}.View()
	assert.Less(t, strings.Index(view, "●"), strings.Index(view, "─"))
}

func TestMenuSkipsDisabled(t *testing.T) {
	called := false
	m := NewMenu([]MenuItem{
		{Label: "Resume", Disabled: true},
		{Label: "New", Action: func() tea.Cmd { called = true; return nil }},
		{Label: "Exit"},
	})
	assert.Equal(t, 1, m.Selected)

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	assert.Equal(t, 1, m.Selected, "disabled entry is skipped")

	m, _ = m.Update(tea.KeyPressMsg{Code: 'j', Text: "j"})
	assert.Equal(t, 2, m.Selected)
	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	assert.Equal(t, 2, m.Selected, "cursor stops at the last entry")

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.True(t, called)
}

func TestMenuAllDisabled(t *testing.T) {
	m := NewMenu([]MenuItem{{Label: "a", Disabled: true}})
	assert.Equal(t, 0, m.Selected)
	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestButtons(t *testing.T) {
	assert.Contains(t, Button("Start question"), "Start question")
	assert.Contains(t, QuietButton("Esc", "Home"), "Esc Home")
}
