// Package theme holds the palette and the shared lipgloss styles.
package theme

import (
	"charm.land/lipgloss/v2"
)

var (
	Primary   = lipgloss.Color("#EF4444") // play-button red
	Secondary = lipgloss.Color("#38BDF8")
	Accent    = lipgloss.Color("#FBBF24")
	Success   = lipgloss.Color("#4ADE80")
	Warning   = lipgloss.Color("#FB923C")
	Error     = lipgloss.Color("#F43F5E")
	Text      = lipgloss.Color("#F1F5F9")
	TextDim   = lipgloss.Color("#8A94A6")
	BgDark    = lipgloss.Color("#111318")
	BgCard    = lipgloss.Color("#1C1F26")
	Border    = lipgloss.Color("#3A3F4B")

	ArcadeYellow = lipgloss.Color("#FDE047")
	ArcadeCyan   = lipgloss.Color("#67E8F9")
)

var (
	Title    = lipgloss.NewStyle().Bold(true).Foreground(Primary).Align(lipgloss.Center)
	Subtitle = lipgloss.NewStyle().Foreground(TextDim).Align(lipgloss.Center)
	Body     = lipgloss.NewStyle().Foreground(Text)
	Hint     = lipgloss.NewStyle().Foreground(TextDim).Italic(true)

	// Card frames the question and explanation panels.
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	// Overlay is the answer-feedback popup drawn over the player.
	Overlay = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(Accent).
		Padding(1, 3)
)

// Answer states.
var (
	Selected   = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	Unselected = lipgloss.NewStyle().Foreground(Text)
	Correct    = lipgloss.NewStyle().Foreground(Success).Bold(true)
	Incorrect  = lipgloss.NewStyle().Foreground(Error).Bold(true)
)

var (
	ButtonActive   = lipgloss.NewStyle().Background(Primary).Foreground(Text).Bold(true).Padding(0, 3)
	ButtonInactive = lipgloss.NewStyle().Foreground(TextDim).Border(lipgloss.NormalBorder()).BorderForeground(Border).Padding(0, 3)
)

// Narrator line styles: dimmed when idle, lit while the question or the
// feedback is being read aloud.
var (
	NarratorIdle     = lipgloss.NewStyle().Foreground(TextDim)
	NarratorSpeaking = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
)
