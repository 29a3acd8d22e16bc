// Package report shows the learner's results once every video is done.
package report

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/router"
	"github.com/abhisek/vidquiz/internal/screen"
	"github.com/abhisek/vidquiz/internal/screens"
	"github.com/abhisek/vidquiz/internal/session"
	"github.com/abhisek/vidquiz/internal/ui/components"
	"github.com/abhisek/vidquiz/internal/ui/layout"
	"github.com/abhisek/vidquiz/internal/ui/theme"
)

const spinnerInterval = 120 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type spinnerTickMsg time.Time

type reportReadyMsg struct {
	attempt int
	Report  *quiz.Report
	Err     error
}

// ReportScreen generates and displays the performance report.
type ReportScreen struct {
	flow      screens.Flow
	analyzer  screens.Analyzer
	sessions  screens.Sessions
	snapshots screens.Snapshots
	log       zerolog.Logger
	sess      *session.Session

	ctx     context.Context
	cancel  context.CancelFunc
	attempt int
	frame   int
	report  *quiz.Report
	err     error
}

var _ screen.Screen = (*ReportScreen)(nil)
var _ screen.KeyHintProvider = (*ReportScreen)(nil)
var _ screen.Closer = (*ReportScreen)(nil)
var _ screen.ScoreProvider = (*ReportScreen)(nil)
var _ screen.BackHandler = (*ReportScreen)(nil)

// New creates a ReportScreen for a completed session.
func New(flow screens.Flow, analyzer screens.Analyzer, sessions screens.Sessions, snapshots screens.Snapshots, log zerolog.Logger, sess *session.Session) *ReportScreen {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReportScreen{
		flow:      flow,
		analyzer:  analyzer,
		sessions:  sessions,
		snapshots: snapshots,
		log:       log.With().Str("component", "report").Logger(),
		sess:      sess,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *ReportScreen) Init() tea.Cmd {
	if s.analyzer == nil {
		return nil
	}
	return tea.Batch(s.tick(), s.generate())
}

func (s *ReportScreen) Title() string {
	return "Your Report"
}

func (s *ReportScreen) HandlesBack() bool { return true }

func (s *ReportScreen) Score() (int, int) {
	h := s.history()
	return quiz.Score(h), len(h)
}

func (s *ReportScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "N", Description: "New session"},
		{Key: "Esc", Description: "Home"},
	}
	if s.err != nil {
		hints = append([]layout.KeyHint{{Key: "R", Description: "Retry"}}, hints...)
	}
	return hints
}

// Close cancels a report request still in flight.
func (s *ReportScreen) Close() {
	s.cancel()
}

func (s *ReportScreen) history() []quiz.AnswerRecord {
	if s.sess == nil {
		return nil
	}
	if len(s.sess.FinalHistory) > 0 {
		return s.sess.FinalHistory
	}
	return s.sess.Progress.History
}

func (s *ReportScreen) tick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

func (s *ReportScreen) generate() tea.Cmd {
	s.attempt++
	s.err = nil
	attempt := s.attempt
	ctx := s.ctx
	history := s.history()
	name := ""
	if s.sess != nil {
		name = s.sess.UserName
	}
	analyzer := s.analyzer
	return func() tea.Msg {
		r, err := analyzer.GenerateReport(ctx, history, name)
		return reportReadyMsg{attempt: attempt, Report: r, Err: err}
	}
}

// startOver drops the finished session and its queue snapshot and returns
// to the home screen.
func (s *ReportScreen) startOver() tea.Cmd {
	sessions, snapshots, log := s.sessions, s.snapshots, s.log
	home := s.flow.Home()
	return func() tea.Msg {
		ctx := context.Background()
		if sessions != nil {
			if err := sessions.Clear(ctx); err != nil {
				log.Warn().Err(err).Msg("clear session")
			}
		}
		if snapshots != nil {
			if err := snapshots.Clear(ctx); err != nil {
				log.Warn().Err(err).Msg("clear queue state")
			}
		}
		return router.ResetScreenMsg{Screen: home}
	}
}

func (s *ReportScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerTickMsg:
		if s.report != nil || s.err != nil {
			return s, nil
		}
		s.frame++
		return s, s.tick()

	case reportReadyMsg:
		if msg.attempt != s.attempt || s.ctx.Err() != nil {
			return s, nil
		}
		if msg.Err != nil {
			s.err = msg.Err
			s.log.Error().Err(msg.Err).Msg("generate report")
			return s, nil
		}
		s.report = msg.Report
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "n":
			return s, s.startOver()
		case "esc":
			home := s.flow.Home()
			return s, func() tea.Msg { return router.ResetScreenMsg{Screen: home} }
		case "r":
			if s.err != nil && s.analyzer != nil {
				return s, tea.Batch(s.tick(), s.generate())
			}
		}
	}
	return s, nil
}

func (s *ReportScreen) View(width, height int) string {
	var b strings.Builder
	center := func(st lipgloss.Style, text string) {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, st.Render(text)))
		b.WriteString("\n")
	}

	title := "Learning complete!"
	if s.sess != nil && s.sess.UserName != "" {
		title = fmt.Sprintf("Well done, %s!", s.sess.UserName)
	}
	center(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true), title)
	b.WriteString("\n")

	h := s.history()
	correct := quiz.Score(h)
	accuracy := 0.0
	if len(h) > 0 {
		accuracy = float64(correct) / float64(len(h))
	}
	center(lipgloss.NewStyle().Foreground(theme.Text),
		fmt.Sprintf("Questions: %d        Correct: %d        Accuracy: %.0f%%", len(h), correct, accuracy*100))
	b.WriteString("\n")

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", min(width-8, 60)))

	switch {
	case s.err != nil:
		center(theme.Incorrect, "We couldn't write your report")
		center(lipgloss.NewStyle().Foreground(theme.TextDim).Width(min(width-8, 70)), s.err.Error())
		center(theme.Hint, "Press R to try again.")
	case s.report == nil && s.analyzer != nil:
		spin := spinnerFrames[s.frame%len(spinnerFrames)]
		center(lipgloss.NewStyle().Foreground(theme.Secondary), spin+" Writing your report...")
	case s.report != nil:
		section(&b, width, divider, "Strengths", theme.Success, s.report.Strengths)
		section(&b, width, divider, "To improve", theme.Accent, s.report.Improvements)
		section(&b, width, divider, "Next steps", theme.Secondary, s.report.Recommendations)
	}

	if len(h) > 0 {
		b.WriteString("\n")
		center(lipgloss.NewStyle().Foreground(theme.TextDim), "Answers")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
		b.WriteString("\n")
		for i, r := range h {
			mark, st := "✓", theme.Correct
			line := fmt.Sprintf("%s %d. %s", mark, i+1, r.Question)
			if !r.IsCorrect {
				mark, st = "✗", theme.Incorrect
				line = fmt.Sprintf("%s %d. %s  (you: %s, answer: %s)", mark, i+1, r.Question, r.UserAnswer, r.CorrectAnswer)
			}
			center(st, line)
		}
	}

	if s.report != nil || s.err != nil || s.analyzer == nil {
		b.WriteString("\n")
		actions := lipgloss.JoinHorizontal(lipgloss.Center,
			components.Button("New session"), "  ", components.QuietButton("Esc", "Home"))
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, actions))
	}

	return b.String()
}

func section(b *strings.Builder, width int, divider, heading string, c color.Color, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Foreground(c).Bold(true).Render(heading)))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n")
	body := lipgloss.NewStyle().Foreground(theme.Text).Width(min(width-8, 60))
	for _, item := range items {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, body.Render("• "+item)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
