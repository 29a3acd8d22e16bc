// Package setup is the screen where the learner enters video links, picks
// a language and types their name.
package setup

import (
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/router"
	"github.com/abhisek/vidquiz/internal/screen"
	"github.com/abhisek/vidquiz/internal/screens"
	"github.com/abhisek/vidquiz/internal/ui/components"
	"github.com/abhisek/vidquiz/internal/ui/layout"
	"github.com/abhisek/vidquiz/internal/ui/theme"
)

const (
	languageField = quiz.MaxVideos
	nameField     = quiz.MaxVideos + 1
	fieldCount    = quiz.MaxVideos + 2
)

// SetupScreen collects a processing request.
type SetupScreen struct {
	flow     screens.Flow
	urls     []components.TextInput
	name     components.TextInput
	language int
	focus    int
	formErr  string
}

var _ screen.Screen = (*SetupScreen)(nil)
var _ screen.KeyHintProvider = (*SetupScreen)(nil)

// New creates a SetupScreen prefilled from defaults.
func New(flow screens.Flow, defaults screens.Request) *SetupScreen {
	s := &SetupScreen{flow: flow}
	for i := 0; i < quiz.MaxVideos; i++ {
		in := components.NewTextInput(fmt.Sprintf("Video %d", i+1), "https://www.youtube.com/watch?v=...", 200)
		if i < len(defaults.Videos) {
			in.SetValue(defaults.Videos[i])
		}
		s.urls = append(s.urls, in)
	}
	s.name = components.NewTextInput("Your name", "e.g. Maya", 50)
	s.name.SetValue(defaults.Name)
	for i, l := range quiz.Languages {
		if l == defaults.Language {
			s.language = i
		}
	}
	return s
}

func (s *SetupScreen) Init() tea.Cmd {
	return s.urls[0].Focus()
}

func (s *SetupScreen) Title() string {
	return "New Session"
}

func (s *SetupScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Start"},
	}
	if s.focus == languageField {
		hints = append(hints, layout.KeyHint{Key: "←→", Description: "Language"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

// Language returns the selected language.
func (s *SetupScreen) Language() quiz.Language {
	return quiz.Languages[s.language]
}

func (s *SetupScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, s.updateFocused(msg)
	}

	switch kmsg.String() {
	case "tab", "down":
		return s, s.moveFocus(1)
	case "shift+tab", "up":
		return s, s.moveFocus(-1)
	case "enter":
		if s.focus == nameField {
			return s, s.submit()
		}
		return s, s.moveFocus(1)
	case "ctrl+s":
		return s, s.submit()
	case "left":
		if s.focus == languageField {
			s.language = (s.language + len(quiz.Languages) - 1) % len(quiz.Languages)
			return s, nil
		}
	case "right", "space":
		if s.focus == languageField {
			s.language = (s.language + 1) % len(quiz.Languages)
			return s, nil
		}
	}
	s.formErr = ""
	return s, s.updateFocused(msg)
}

func (s *SetupScreen) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case s.focus < quiz.MaxVideos:
		s.urls[s.focus], cmd = s.urls[s.focus].Update(msg)
	case s.focus == nameField:
		s.name, cmd = s.name.Update(msg)
	}
	return cmd
}

func (s *SetupScreen) moveFocus(delta int) tea.Cmd {
	return s.focusField((s.focus + delta + fieldCount) % fieldCount)
}

func (s *SetupScreen) focusField(i int) tea.Cmd {
	for j := range s.urls {
		s.urls[j].Blur()
	}
	s.name.Blur()
	s.focus = i
	switch {
	case i < quiz.MaxVideos:
		return s.urls[i].Focus()
	case i == nameField:
		return s.name.Focus()
	}
	return nil
}

// submit validates the form. Errors are shown inline next to the field
// they concern and focus moves there.
func (s *SetupScreen) submit() tea.Cmd {
	s.formErr = ""
	for i := range s.urls {
		s.urls[i].Err = ""
	}
	s.name.Err = ""

	raw := make([]string, len(s.urls))
	for i, in := range s.urls {
		raw[i] = in.Value()
		if strings.TrimSpace(raw[i]) != "" && quiz.ValidateVideoURL(raw[i]) != nil {
			s.urls[i].Err = "Not a YouTube video link"
		}
	}
	videos, err := quiz.ValidateVideoURLs(raw)
	if err != nil {
		s.formErr = messageOf(err)
		return s.focusField(s.firstURLError())
	}

	name, err := quiz.ValidateName(s.name.Value())
	if err != nil {
		s.name.Err = messageOf(err)
		return s.focusField(nameField)
	}

	req := screens.Request{Videos: videos, Language: s.Language(), Name: name}
	next := s.flow.Processing(req)
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: next}
	}
}

func (s *SetupScreen) firstURLError() int {
	for i, in := range s.urls {
		if in.Err != "" {
			return i
		}
	}
	return 0
}

func messageOf(err error) string {
	var verr *quiz.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

func (s *SetupScreen) View(width, height int) string {
	cw := min(width-4, 72)

	var b strings.Builder
	b.WriteString(theme.Title.Width(cw).Render("What do you want to learn today?"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(cw).Render(fmt.Sprintf("Add up to %d YouTube videos. We'll quiz you as you watch.", quiz.MaxVideos)))
	b.WriteString("\n\n")

	for _, in := range s.urls {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if s.formErr != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Render("✗ " + s.formErr))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(s.renderLanguage())
	b.WriteString("\n\n")
	b.WriteString(s.name.View())

	card := theme.Card.Width(cw).Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

func (s *SetupScreen) renderLanguage() string {
	labelStyle := lipgloss.NewStyle().Foreground(theme.TextDim)
	if s.focus == languageField {
		labelStyle = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	}
	parts := make([]string, 0, len(quiz.Languages))
	for i, l := range quiz.Languages {
		if i == s.language {
			parts = append(parts, theme.Selected.Render("● "+l.DisplayName()))
		} else {
			parts = append(parts, theme.Unselected.Render("○ "+l.DisplayName()))
		}
	}
	return labelStyle.Render("Explanation language") + "\n" + strings.Join(parts, "   ")
}
