// Package processing is the screen shown while videos are analyzed into
// quiz segments.
package processing

import (
	"context"
	"fmt"
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
	"github.com/abhisek/vidquiz/internal/ui/layout"
	"github.com/abhisek/vidquiz/internal/ui/theme"
)

const spinnerInterval = 120 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type spinnerTickMsg time.Time

// sessionReadyMsg carries the stored session built from the analysis.
type sessionReadyMsg struct {
	attempt int
	Session *session.Session
	Err     error
}

// ProcessingScreen runs the analysis and stores the new session.
type ProcessingScreen struct {
	flow      screens.Flow
	analyzer  screens.Analyzer
	sessions  screens.Sessions
	snapshots screens.Snapshots
	log       zerolog.Logger
	req       screens.Request

	ctx     context.Context
	cancel  context.CancelFunc
	attempt int
	frame   int
	started time.Time
	err     error
}

var _ screen.Screen = (*ProcessingScreen)(nil)
var _ screen.KeyHintProvider = (*ProcessingScreen)(nil)
var _ screen.Closer = (*ProcessingScreen)(nil)

// New creates a ProcessingScreen for req.
func New(flow screens.Flow, analyzer screens.Analyzer, sessions screens.Sessions, snapshots screens.Snapshots, log zerolog.Logger, req screens.Request) *ProcessingScreen {
	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessingScreen{
		flow:      flow,
		analyzer:  analyzer,
		sessions:  sessions,
		snapshots: snapshots,
		log:       log.With().Str("component", "processing").Logger(),
		req:       req,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (p *ProcessingScreen) Init() tea.Cmd {
	return tea.Batch(p.tick(), p.start())
}

func (p *ProcessingScreen) Title() string {
	return "Analyzing"
}

func (p *ProcessingScreen) KeyHints() []layout.KeyHint {
	if p.err != nil {
		return []layout.KeyHint{
			{Key: "R", Description: "Retry"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return []layout.KeyHint{{Key: "Esc", Description: "Cancel"}}
}

// Close cancels an analysis still in flight.
func (p *ProcessingScreen) Close() {
	p.cancel()
}

func (p *ProcessingScreen) tick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

func (p *ProcessingScreen) start() tea.Cmd {
	p.attempt++
	p.err = nil
	p.started = time.Now()
	attempt := p.attempt
	ctx := p.ctx
	req := p.req
	return func() tea.Msg {
		sess, err := p.process(ctx, req)
		return sessionReadyMsg{attempt: attempt, Session: sess, Err: err}
	}
}

// process analyzes the videos and replaces any stored session with the
// new one. The previous queue snapshot belongs to the old session and is
// dropped.
func (p *ProcessingScreen) process(ctx context.Context, req screens.Request) (*session.Session, error) {
	results, err := p.analyzer.AnalyzeAll(ctx, req.Videos, req.Language)
	if err != nil {
		return nil, err
	}
	if len(results) != len(req.Videos) {
		return nil, fmt.Errorf("analysis returned %d results for %d videos", len(results), len(req.Videos))
	}
	for _, r := range results {
		if len(r.Segments) == 0 {
			return nil, &quiz.ValidationError{Field: "segments", Message: "No questions could be generated for " + r.URL}
		}
	}

	if err := p.snapshots.Clear(ctx); err != nil {
		p.log.Warn().Err(err).Msg("clear previous queue state")
	}
	if _, err := p.sessions.StartNew(ctx, req.Videos, results, req.Language); err != nil {
		return nil, err
	}
	name := req.Name
	return p.sessions.Update(ctx, session.Patch{UserName: &name})
}

func (p *ProcessingScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerTickMsg:
		p.frame++
		return p, p.tick()

	case sessionReadyMsg:
		if msg.attempt != p.attempt || p.ctx.Err() != nil {
			return p, nil
		}
		if msg.Err != nil {
			p.err = msg.Err
			p.log.Error().Err(msg.Err).Int("videos", len(p.req.Videos)).Msg("analysis failed")
			return p, nil
		}
		p.log.Info().
			Int("videos", len(msg.Session.Videos)).
			Dur("took", time.Since(p.started)).
			Msg("analysis complete")
		next := p.flow.Learning(msg.Session)
		return p, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }

	case tea.KeyMsg:
		if p.err != nil && msg.String() == "r" {
			return p, p.start()
		}
	}
	return p, nil
}

func (p *ProcessingScreen) View(width, height int) string {
	var b strings.Builder

	if p.err != nil {
		b.WriteString(theme.Incorrect.Render("We couldn't prepare your videos"))
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Width(min(width-8, 70)).Render(p.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(theme.Hint.Render("Press R to try again or Esc to change your videos."))
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, theme.Card.Render(b.String()))
	}

	spin := lipgloss.NewStyle().Foreground(theme.Secondary).Render(spinnerFrames[p.frame%len(spinnerFrames)])
	b.WriteString(spin + " " + theme.Body.Bold(true).Render("Watching your videos and writing questions..."))
	b.WriteString("\n\n")
	for i, v := range p.req.Videos {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("  %d. %s", i+1, v)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(theme.Hint.Render(fmt.Sprintf("Explanations in %s. This can take a minute per video.", p.req.Language.DisplayName())))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, theme.Card.Render(b.String()))
}
