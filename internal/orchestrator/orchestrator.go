// Package orchestrator runs a learning session: it pauses videos at quiz
// segments, narrates questions, processes answers and advances through
// the video list.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/platform"
	"github.com/abhisek/vidquiz/internal/player"
	"github.com/abhisek/vidquiz/internal/queue"
	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/speech"
	"github.com/abhisek/vidquiz/internal/timing"
)

const (
	// SettleDelay is the pause between praise and resuming the video.
	SettleDelay = 2000 * time.Millisecond

	// TransitionDelay is how long the between-videos screen stays up.
	TransitionDelay = 5000 * time.Millisecond

	// NamePlaceholder is replaced by the learner's name in narration.
	NamePlaceholder = "{name}"

	introText      = ""
	completionText = "Congratulations {name}! You've completed all the videos!"
)

var (
	// ErrAnswerIgnored is returned when a selection arrives while answering
	// is disabled or another answer is being processed.
	ErrAnswerIgnored = errors.New("orchestrator: answer ignored")

	// ErrNotAwaitingTap is returned by StartQuestion without a pending gate.
	ErrNotAwaitingTap = errors.New("orchestrator: no question awaiting tap")

	// ErrNoExplanation is returned by CloseExplanation when none is open.
	ErrNoExplanation = errors.New("orchestrator: no explanation open")
)

// Narrator speaks utterances in order. *speech.Sequencer implements it.
type Narrator interface {
	Add(ctx context.Context, text string) error
	Clear(ctx context.Context) error
}

// Explanation is the detailed explanation shown after a wrong answer.
type Explanation struct {
	English         string
	Translated      string
	ShowTranslation bool
	LanguageName    string
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Player   player.Player
	Narrator Narrator
	Queue    *queue.Machine
	Platform *platform.Context
	Analysis []quiz.VideoAnalysis
	Learner  string
	Logger   zerolog.Logger

	// CueVideo loads the video at index into the player before it plays.
	CueVideo func(ctx context.Context, index int) error

	OnComplete    func(history []quiz.AnswerRecord)
	OnProgress    func(s queue.State)
	OnExplanation func(e Explanation)
}

// Options tunes timings. Zero values select the defaults.
type Options struct {
	SettleDelay     time.Duration
	TransitionDelay time.Duration
	WatchInterval   time.Duration
	// WatchDebounce of zero uses the default, negative disables it.
	WatchDebounce time.Duration

	Now   func() time.Time
	After func(time.Duration) <-chan time.Time
}

func (o Options) withDefaults() Options {
	if o.SettleDelay == 0 {
		o.SettleDelay = SettleDelay
	}
	if o.TransitionDelay == 0 {
		o.TransitionDelay = TransitionDelay
	}
	if o.WatchInterval == 0 {
		o.WatchInterval = timing.DefaultInterval
	}
	if o.WatchDebounce == 0 {
		o.WatchDebounce = timing.DefaultDebounce
	}
	if o.WatchDebounce < 0 {
		o.WatchDebounce = 0
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.After == nil {
		o.After = time.After
	}
	return o
}

// Token identifies one narration or answer flow. A flow whose token is no
// longer current abandons silently at its next suspension point.
type Token struct {
	id  uint64
	src *atomic.Uint64
}

// IsCurrent reports whether no newer flow has started.
func (t Token) IsCurrent() bool {
	return t.src != nil && t.src.Load() == t.id
}

// Orchestrator coordinates one learning run.
type Orchestrator struct {
	deps    Deps
	opts    Options
	log     zerolog.Logger
	watcher *timing.Watcher

	ctx     context.Context
	cancel  context.CancelFunc
	seq     atomic.Uint64
	mounted atomic.Bool
	wg      sync.WaitGroup

	mu           sync.Mutex
	processing   bool
	narrating    bool
	narrationTok Token
	awaitingTap  bool
	explanation  *Explanation
	transition   chan struct{}
}

// New creates an Orchestrator. Call Start to begin playback and Close
// when the learner leaves.
func New(deps Deps, opts Options) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		deps:   deps,
		opts:   opts.withDefaults(),
		log:    deps.Logger.With().Str("component", "orchestrator").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
	o.mounted.Store(true)
	o.watcher = timing.NewWatcher(deps.Player, o.cursor, o.onSegmentReached,
		timing.WithInterval(o.opts.WatchInterval),
		timing.WithDebounce(o.opts.WatchDebounce),
		timing.WithLogger(deps.Logger),
	)
	return o
}

// State returns the current queue state.
func (o *Orchestrator) State() queue.State {
	return o.deps.Queue.State()
}

// Learner is the learner's name.
func (o *Orchestrator) Learner() string { return o.deps.Learner }

// Token returns the token of the current flow.
func (o *Orchestrator) Token() Token {
	return Token{id: o.seq.Load(), src: &o.seq}
}

func (o *Orchestrator) newToken() Token {
	return Token{id: o.seq.Add(1), src: &o.seq}
}

func (o *Orchestrator) live(t Token) bool {
	return o.mounted.Load() && t.IsCurrent()
}

// CurrentSegment returns the segment the cursor points at.
func (o *Orchestrator) CurrentSegment() (quiz.Segment, bool) {
	st := o.deps.Queue.State()
	return o.segment(st.CurrentVideoIndex, st.CurrentSegmentIndex)
}

func (o *Orchestrator) segment(video, seg int) (quiz.Segment, bool) {
	segs := o.segments(video)
	if seg < 0 || seg >= len(segs) {
		return quiz.Segment{}, false
	}
	return segs[seg], true
}

func (o *Orchestrator) segments(video int) []quiz.Segment {
	if video < 0 || video >= len(o.deps.Analysis) {
		return nil
	}
	return o.deps.Analysis[video].Segments
}

// AwaitingTap reports whether a question waits behind the tap-to-start
// gate.
func (o *Orchestrator) AwaitingTap() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.awaitingTap
}

// Explanation returns the open detailed explanation, if any.
func (o *Orchestrator) Explanation() (Explanation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.explanation == nil {
		return Explanation{}, false
	}
	return *o.explanation, true
}

// Start cues and plays the current video unless the transition screen is
// up, in which case ContinueAfterTransition starts it.
func (o *Orchestrator) Start(ctx context.Context) error {
	st := o.deps.Queue.State()
	if st.ShowVideoTransition {
		o.scheduleTransition()
		return nil
	}
	return o.playCurrent(ctx, st.CurrentVideoIndex)
}

func (o *Orchestrator) playCurrent(ctx context.Context, index int) error {
	if o.deps.CueVideo != nil {
		if err := o.deps.CueVideo(ctx, index); err != nil {
			return fmt.Errorf("cue video %d: %w", index, err)
		}
	}
	if err := o.deps.Player.Play(ctx); err != nil {
		o.log.Warn().Err(err).Msg("play video")
	}
	return nil
}

// HandlePlayerState reacts to a playback state change.
func (o *Orchestrator) HandlePlayerState(ctx context.Context, s player.State) {
	if !o.mounted.Load() {
		return
	}
	o.log.Debug().Stringer("state", s).Msg("player state")

	switch s {
	case player.Playing:
		o.watcher.Arm(o.ctx)
		no := false
		o.deps.Queue.Dispatch(queue.SetDisplay{ShowCharacter: &no})
		o.deps.Queue.Dispatch(queue.SetBuffering{Buffering: false})
	case player.Ended:
		o.watcher.Disarm()
		o.handleVideoEnd(ctx)
	case player.Buffering:
		o.watcher.Disarm()
		o.deps.Queue.Dispatch(queue.SetBuffering{Buffering: true})
	case player.Paused:
		o.watcher.Disarm()
	}
}

func (o *Orchestrator) cursor() (timing.Cursor, []quiz.Segment) {
	st := o.deps.Queue.State()
	o.mu.Lock()
	awaiting := o.awaitingTap
	o.mu.Unlock()
	return timing.Cursor{
		SegmentIndex: st.CurrentSegmentIndex,
		Answered:     st.QuestionAnswered,
		Showing:      st.ShowQuestion || awaiting,
	}, o.segments(st.CurrentVideoIndex)
}

// onSegmentReached runs on the watcher goroutine. It must not block on
// narration.
func (o *Orchestrator) onSegmentReached(ctx context.Context, d timing.Decision) {
	if !o.mounted.Load() {
		return
	}
	tok := o.newToken()
	if err := o.deps.Player.Pause(ctx); err != nil {
		o.log.Warn().Err(err).Msg("pause video")
	}

	strict := o.deps.Platform.Strict()
	st := o.deps.Queue.Dispatch(queue.PresentQuestion{Index: d.SegmentIndex, Visible: !strict})
	o.progress(st)
	o.log.Info().Int("video", st.CurrentVideoIndex).Int("segment", d.SegmentIndex).Bool("gated", strict).Msg("question triggered")

	if strict {
		o.mu.Lock()
		o.awaitingTap = true
		o.mu.Unlock()
		return
	}
	o.startNarration(tok, d.Segment)
}

// StartQuestion satisfies the tap-to-start gate and narrates the question.
func (o *Orchestrator) StartQuestion(ctx context.Context) error {
	if !o.mounted.Load() {
		return ErrNotAwaitingTap
	}
	o.mu.Lock()
	if !o.awaitingTap {
		o.mu.Unlock()
		return ErrNotAwaitingTap
	}
	o.awaitingTap = false
	o.mu.Unlock()

	o.deps.Platform.Unlock()
	yes := true
	o.deps.Queue.Dispatch(queue.SetDisplay{ShowQuestion: &yes, ShowCharacter: &yes})

	seg, ok := o.CurrentSegment()
	if !ok {
		return nil
	}
	o.startNarration(o.newToken(), seg)
	return nil
}

// startNarration reads seg aloud under tok. Callers have already issued
// tok, so a narration still in flight is stale; its queued speech is
// cleared before the new one starts.
func (o *Orchestrator) startNarration(tok Token, seg quiz.Segment) {
	o.mu.Lock()
	superseded := o.narrating
	o.narrating = true
	o.narrationTok = tok
	o.mu.Unlock()

	if superseded {
		if err := o.deps.Narrator.Clear(o.ctx); err != nil {
			o.log.Warn().Err(err).Msg("clear superseded narration")
		}
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			if o.narrationTok == tok {
				o.narrating = false
			}
			o.mu.Unlock()
		}()
		o.narrate(tok, seg)
	}()
}

func (o *Orchestrator) narrate(tok Token, seg quiz.Segment) {
	for _, text := range []string{introText, seg.Question, OptionsText(seg.Answers)} {
		if !o.live(tok) || !o.speak(o.ctx, tok, text) {
			return
		}
	}
	if !o.live(tok) {
		return
	}
	o.deps.Queue.Dispatch(queue.EnableAnswers{})
}

// OptionsText renders the answer options as they are read aloud.
func OptionsText(answers []string) string {
	parts := make([]string, len(answers))
	for i, a := range answers {
		parts[i] = fmt.Sprintf("Option %d: %s", i+1, a)
	}
	return strings.Join(parts, ". ")
}

// speak narrates text and reports whether the flow may continue. Blank
// text is skipped.
func (o *Orchestrator) speak(ctx context.Context, tok Token, text string) bool {
	text = strings.ReplaceAll(text, NamePlaceholder, o.deps.Learner)
	if strings.TrimSpace(text) == "" {
		return true
	}

	o.deps.Queue.Dispatch(queue.SetSpeaking{Speaking: true})
	err := o.deps.Narrator.Add(ctx, text)
	if !o.live(tok) {
		return false
	}
	o.deps.Queue.Dispatch(queue.SetSpeaking{Speaking: false})

	switch {
	case err == nil:
		return true
	case errors.Is(err, speech.ErrCleared), ctx.Err() != nil:
		return false
	default:
		o.log.Warn().Err(err).Msg("narration failed")
		return true
	}
}

// SelectAnswer processes the learner's choice. It returns once the
// answer flow has finished or suspended on the detailed explanation.
func (o *Orchestrator) SelectAnswer(ctx context.Context, index int) error {
	if !o.mounted.Load() {
		return ErrAnswerIgnored
	}
	o.mu.Lock()
	st := o.deps.Queue.State()
	seg, ok := o.segment(st.CurrentVideoIndex, st.CurrentSegmentIndex)
	switch {
	case !ok || !st.ShowQuestion || !st.IsAnswerSelectionEnabled || o.processing:
		o.mu.Unlock()
		return ErrAnswerIgnored
	case index < 0 || index >= len(seg.Answers):
		o.mu.Unlock()
		return fmt.Errorf("answer %d out of range: %w", index, ErrAnswerIgnored)
	}
	o.processing = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.processing = false
		o.mu.Unlock()
	}()

	tok := o.newToken()
	if err := o.deps.Narrator.Clear(ctx); err != nil {
		o.log.Warn().Err(err).Msg("clear narration")
	}

	correct := index == seg.CorrectIndex
	o.deps.Queue.Dispatch(queue.SelectAnswer{Index: index, IsCorrect: correct})
	st = o.deps.Queue.Dispatch(queue.RecordAnswer{
		Answer:        index,
		IsCorrect:     correct,
		Question:      seg.Question,
		CorrectAnswer: seg.CorrectAnswer(),
		UserAnswer:    seg.Answers[index],
		At:            o.opts.Now().UTC(),
	})
	o.progress(st)
	o.log.Info().Int("video", st.CurrentVideoIndex).Int("segment", st.CurrentSegmentIndex).Bool("correct", correct).Msg("answer recorded")

	if correct {
		if !o.speak(ctx, tok, seg.Praise) && !o.live(tok) {
			return nil
		}
		select {
		case <-o.opts.After(o.opts.SettleDelay):
		case <-o.ctx.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
		if !o.live(tok) {
			return nil
		}
		o.finish(ctx)
		return nil
	}

	if !o.speak(ctx, tok, seg.Explanation) && !o.live(tok) {
		return nil
	}
	if err := o.deps.Narrator.Clear(ctx); err != nil {
		o.log.Warn().Err(err).Msg("clear narration")
	}

	e := explanationFor(seg, st.SelectedLanguage)
	o.mu.Lock()
	o.explanation = &e
	o.mu.Unlock()
	if o.deps.OnExplanation != nil {
		o.deps.OnExplanation(e)
	}
	return nil
}

func explanationFor(seg quiz.Segment, lang quiz.Language) Explanation {
	english := seg.DetailedExplanation.English
	if strings.TrimSpace(english) == "" {
		english = quiz.ExplanationUnavailable
	}
	return Explanation{
		English:         english,
		Translated:      seg.DetailedExplanation.Translated,
		ShowTranslation: !lang.IsDefault() && seg.DetailedExplanation.HasTranslation(),
		LanguageName:    lang.DisplayName(),
	}
}

// CloseExplanation dismisses the detailed explanation and resumes the
// video.
func (o *Orchestrator) CloseExplanation(ctx context.Context) error {
	o.mu.Lock()
	if o.explanation == nil {
		o.mu.Unlock()
		return ErrNoExplanation
	}
	o.explanation = nil
	o.mu.Unlock()
	o.finish(ctx)
	return nil
}

// finish closes the current question and resumes playback.
func (o *Orchestrator) finish(ctx context.Context) {
	if !o.mounted.Load() {
		return
	}
	st := o.deps.Queue.Dispatch(queue.MarkAnswered{})
	o.progress(st)
	if st.VideoEnded {
		return
	}
	if err := o.deps.Player.Play(ctx); err != nil {
		o.log.Warn().Err(err).Msg("resume video")
	}
}

func (o *Orchestrator) handleVideoEnd(ctx context.Context) {
	st := o.deps.Queue.Dispatch(queue.EndVideo{})
	if st.IsLastVideo() {
		o.log.Info().Int("answers", len(st.LearningHistory)).Msg("final video completed")
		o.speak(ctx, o.newToken(), completionText)
		if !o.mounted.Load() {
			return
		}
		st = o.deps.Queue.State()
		if o.deps.OnComplete != nil {
			o.deps.OnComplete(st.LearningHistory)
		}
		o.progress(o.deps.Queue.Dispatch(queue.EndLearning{}))
		return
	}

	st = o.deps.Queue.Dispatch(queue.NextVideo{})
	o.progress(st)
	if err := o.deps.Player.Stop(ctx); err != nil {
		o.log.Warn().Err(err).Msg("stop video")
	}
	o.scheduleTransition()
}

func (o *Orchestrator) scheduleTransition() {
	o.mu.Lock()
	if o.transition != nil {
		close(o.transition)
	}
	cancel := make(chan struct{})
	o.transition = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		select {
		case <-o.opts.After(o.opts.TransitionDelay):
			if err := o.ContinueAfterTransition(o.ctx); err != nil {
				o.log.Warn().Err(err).Msg("auto-advance")
			}
		case <-cancel:
		case <-o.ctx.Done():
		}
	}()
}

// ContinueAfterTransition leaves the between-videos screen and starts the
// next video. It is a no-op when the screen is not showing.
func (o *Orchestrator) ContinueAfterTransition(ctx context.Context) error {
	if !o.mounted.Load() {
		return nil
	}
	o.mu.Lock()
	if o.transition != nil {
		close(o.transition)
		o.transition = nil
	}
	o.mu.Unlock()

	st := o.deps.Queue.State()
	if !st.ShowVideoTransition {
		return nil
	}
	st = o.deps.Queue.Dispatch(queue.StartVideo{})
	return o.playCurrent(ctx, st.CurrentVideoIndex)
}

func (o *Orchestrator) progress(st queue.State) {
	if o.deps.OnProgress != nil && o.mounted.Load() {
		o.deps.OnProgress(st)
	}
}

// Close tears the run down: it stops timers and narration and destroys
// the player. Later calls into the Orchestrator are no-ops.
func (o *Orchestrator) Close() {
	if !o.mounted.Swap(false) {
		return
	}
	o.seq.Add(1)
	o.cancel()
	o.watcher.Disarm()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.deps.Narrator.Clear(ctx); err != nil {
		o.log.Warn().Err(err).Msg("clear narration")
	}
	if err := o.deps.Player.Destroy(); err != nil {
		o.log.Warn().Err(err).Msg("destroy player")
	}
	o.wg.Wait()
}
