package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/vidquiz/internal/orchestrator"
	"github.com/abhisek/vidquiz/internal/player"
	"github.com/abhisek/vidquiz/internal/queue"
	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/ui/components"
	"github.com/abhisek/vidquiz/internal/ui/theme"
)

func (w *WatchScreen) View(width, height int) string {
	if w.err != nil {
		return renderError(width, height, w.err)
	}
	if w.run == nil {
		return renderLoading(width)
	}

	cw := min(width-4, 90)
	var sections []string
	sections = append(sections, w.renderVideoBar(cw))
	sections = append(sections, w.renderCharacter(cw))

	orch := w.run.Orchestrator()
	switch {
	case w.state.IsLearningComplete:
		sections = append(sections, renderComplete(cw, w.state))
	case w.state.ShowVideoTransition:
		sections = append(sections, w.renderTransition(cw))
	case orch.AwaitingTap():
		sections = append(sections, renderGate(cw))
	case w.state.ShowQuestion:
		sections = append(sections, w.renderQuestion(cw))
	}

	if e, ok := orch.Explanation(); ok {
		sections = append(sections, renderExplanation(cw, e))
	}

	if w.notice != "" {
		sections = append(sections, theme.Hint.Render(w.notice))
	}

	content := strings.Join(sections, "\n\n")
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, content)
}

// renderVideoBar shows which video is playing, where it is and what the
// player is doing.
func (w *WatchScreen) renderVideoBar(cw int) string {
	st := w.state
	p := w.run.Player()
	pos, _ := p.CurrentTime(context.Background())
	dur := p.Duration()

	url := ""
	if st.CurrentVideoIndex < len(w.sess.Videos) {
		url = w.sess.Videos[st.CurrentVideoIndex]
	}
	head := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
		Render(fmt.Sprintf("▶ Video %d of %d", st.CurrentVideoIndex+1, st.TotalVideos))
	status := lipgloss.NewStyle().Foreground(theme.TextDim).Render(playerLabel(p.State(), st.IsBuffering))
	line := head + "  " + lipgloss.NewStyle().Foreground(theme.TextDim).Render(url)
	if gap := cw - lipgloss.Width(line) - lipgloss.Width(status); gap > 0 {
		line += strings.Repeat(" ", gap) + status
	}

	segs := w.run.Segments(st.CurrentVideoIndex)
	asked := st.CurrentSegmentIndex
	if st.QuestionAnswered || st.ShowQuestion {
		asked++
	}
	marks := make([]time.Duration, 0, len(segs))
	for _, seg := range segs {
		if at, err := seg.At(); err == nil {
			marks = append(marks, at)
		}
	}
	bar := components.Timeline{
		Label:    fmt.Sprintf("%s / %s", quiz.FormatTimestamp(pos), quiz.FormatTimestamp(dur)),
		Position: pos,
		Length:   dur,
		Marks:    marks,
		Asked:    asked,
		Width:    cw,
	}.View()

	info := fmt.Sprintf("Question %d of %d", min(asked, len(segs)), len(segs))
	if next, ok := nextQuestionAt(segs, st); ok && !st.ShowQuestion {
		info += "   next at " + quiz.FormatTimestamp(next)
	}
	meta := lipgloss.NewStyle().Foreground(theme.TextDim).Render(info)

	return line + "\n" + bar + "\n" + meta
}

func playerLabel(s player.State, buffering bool) string {
	switch {
	case buffering || s == player.Buffering:
		return "◌ buffering"
	case s == player.Playing:
		return "● playing"
	case s == player.Paused:
		return "❚❚ paused"
	case s == player.Ended:
		return "■ ended"
	default:
		return "○ " + s.String()
	}
}

func nextQuestionAt(segs []quiz.Segment, st queue.State) (time.Duration, bool) {
	i := st.CurrentSegmentIndex
	if st.QuestionAnswered {
		i++
	}
	if i >= len(segs) {
		return 0, false
	}
	at, err := segs[i].At()
	return at, err == nil
}

var characterFaces = map[queue.CharacterState]string{
	queue.CharacterIdle:      "(•‿•)",
	queue.CharacterSpeaking:  "(°o°) ♪",
	queue.CharacterCorrect:   "(^▽^) ✓",
	queue.CharacterIncorrect: "(•︵•)",
}

func (w *WatchScreen) renderCharacter(cw int) string {
	st := w.state
	face := characterFaces[st.CharacterState]
	if face == "" {
		face = characterFaces[queue.CharacterIdle]
	}

	var caption string
	switch st.CharacterState {
	case queue.CharacterSpeaking:
		caption = "Listen closely..."
	case queue.CharacterCorrect:
		caption = "That's right!"
	case queue.CharacterIncorrect:
		caption = "Not quite."
	default:
		caption = "Watching with you."
	}

	style := theme.NarratorIdle
	switch st.CharacterState {
	case queue.CharacterSpeaking:
		style = theme.NarratorSpeaking
	case queue.CharacterCorrect:
		style = theme.Correct
	case queue.CharacterIncorrect:
		style = theme.Incorrect
	}
	if !st.ShowCharacter && st.CharacterState == queue.CharacterIdle {
		style = theme.NarratorIdle
	}
	return lipgloss.NewStyle().Width(cw).Render(style.Render(face + "  " + caption))
}

func (w *WatchScreen) renderQuestion(cw int) string {
	seg, ok := w.run.Orchestrator().CurrentSegment()
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Width(cw - 6).Render(seg.Question))
	b.WriteString("\n\n")
	if w.hasChoice {
		b.WriteString(w.choice.View())
	}
	if !w.state.IsAnswerSelectionEnabled && w.state.SelectedAnswer == nil {
		b.WriteString("\n" + theme.Hint.Render("Answers unlock once the question has been read."))
	}
	if w.state.SelectedAnswer != nil {
		b.WriteString("\n" + renderVerdict(seg, *w.state.SelectedAnswer))
	}
	return theme.Card.Width(cw).Render(b.String())
}

func renderVerdict(seg quiz.Segment, chosen int) string {
	if chosen == seg.CorrectIndex {
		return theme.Correct.Render("✓ " + seg.Praise)
	}
	return theme.Incorrect.Render("✗ " + seg.Explanation)
}

func renderGate(cw int) string {
	body := theme.Body.Bold(true).Render("A question is ready!") + "\n\n" +
		components.Button("Start question") + "\n\n" +
		theme.Hint.Render("Press Enter to turn on the narrator.")
	return theme.Card.Width(cw).Align(lipgloss.Center).Render(body)
}

func renderExplanation(cw int, e orchestrator.Explanation) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Let's look at it again"))
	b.WriteString("\n\n")
	b.WriteString(theme.Body.Width(cw - 10).Render(e.English))
	if e.ShowTranslation {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render(e.LanguageName))
		b.WriteString("\n")
		b.WriteString(theme.Body.Width(cw - 10).Render(e.Translated))
	}
	b.WriteString("\n\n")
	b.WriteString(components.Button("Continue watching"))
	return theme.Overlay.Width(cw).Render(b.String())
}

func (w *WatchScreen) renderTransition(cw int) string {
	st := w.state
	left := orchestrator.TransitionDelay
	if !w.transitionAt.IsZero() {
		left -= time.Since(w.transitionAt)
	}
	secs := max(0, int((left+time.Second-1)/time.Second))

	body := theme.Correct.Render(fmt.Sprintf("Video %d complete!", st.CurrentVideoIndex)) + "\n\n" +
		theme.Body.Render(fmt.Sprintf("Score so far: %d of %d", st.Score(), len(st.LearningHistory))) + "\n" +
		theme.Subtitle.Render(fmt.Sprintf("Video %d starts in %ds", st.CurrentVideoIndex+1, secs)) + "\n\n" +
		components.Button("Next video")
	return theme.Overlay.Width(cw).Align(lipgloss.Center).Render(body)
}

func renderComplete(cw int, st queue.State) string {
	body := theme.Title.Render("All videos complete!") + "\n\n" +
		theme.Body.Render(fmt.Sprintf("You answered %d of %d correctly.", st.Score(), len(st.LearningHistory))) + "\n" +
		theme.Hint.Render("Preparing your report...")
	return theme.Overlay.Width(cw).Align(lipgloss.Center).Render(body)
}

func renderLoading(width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("\n\n\n  Loading your videos...")
}

func renderError(width, height int, err error) string {
	body := theme.Incorrect.Render("Something went wrong") + "\n\n" +
		theme.Body.Render(err.Error()) + "\n\n" +
		theme.Hint.Render("Press Esc to go back.")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, theme.Card.Render(body))
}
