// Package learning assembles one learning run: the simulated video player,
// the queue machine with its persister, and the orchestrator, all kept in
// sync with the stored session.
package learning

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/orchestrator"
	"github.com/abhisek/vidquiz/internal/platform"
	"github.com/abhisek/vidquiz/internal/player"
	"github.com/abhisek/vidquiz/internal/queue"
	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/session"
	"github.com/abhisek/vidquiz/internal/store"
)

// TailLength is how long a simulated video keeps playing after its last
// question.
const TailLength = 20 * time.Second

// pollEvery drives the simulated player's end-of-video detection.
const pollEvery = 100 * time.Millisecond

// Deps are the long-lived collaborators a run borrows.
type Deps struct {
	Sessions *session.Store
	KV       store.KV
	Narrator orchestrator.Narrator
	Platform *platform.Context
	Logger   zerolog.Logger

	// PlaybackRate speeds up the simulated video clock. Zero means 1.
	PlaybackRate float64
	Options      orchestrator.Options
}

// Run is one active learning run.
type Run struct {
	orch      *orchestrator.Orchestrator
	machine   *queue.Machine
	player    *player.Simulated
	persister *queue.Persister
	sessions  *session.Store
	analysis  []quiz.VideoAnalysis
	log       zerolog.Logger

	cancel context.CancelFunc
	detach func()
	wg     sync.WaitGroup

	once     sync.Once
	done     chan struct{}
	mu       sync.Mutex
	history  []quiz.AnswerRecord
	firstCue bool
	resumeAt time.Duration
}

// Start builds a run for sess and begins playback. A fresh queue snapshot
// younger than a day is restored first so a reopened session continues
// where it stopped.
func Start(ctx context.Context, deps Deps, sess *session.Session) (*Run, error) {
	log := deps.Logger.With().Str("component", "learning").Logger()

	machine := queue.NewMachine(queue.Initial(len(sess.Analysis), sess.SelectedLanguage))
	persister := queue.NewPersister(deps.KV, queue.WithLogger(deps.Logger))
	snap, err := persister.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring stored queue state")
	}
	if snap != nil {
		machine.Dispatch(queue.Restore{Snapshot: snap, Now: time.Now()})
	}
	st := machine.State()
	if st.TotalVideos != len(sess.Analysis) || st.CurrentVideoIndex >= len(sess.Analysis) {
		log.Warn().Int("stored_videos", st.TotalVideos).Msg("stored queue state does not match session, starting over")
		machine = queue.NewMachine(queue.Initial(len(sess.Analysis), sess.SelectedLanguage))
		st = machine.State()
	}

	rate := deps.PlaybackRate
	if rate <= 0 {
		rate = 1
	}
	r := &Run{
		machine:   machine,
		persister: persister,
		sessions:  deps.Sessions,
		analysis:  sess.Analysis,
		log:       log,
		done:      make(chan struct{}),
		firstCue:  true,
		resumeAt:  resumePosition(sess.Analysis, st),
	}
	r.player = player.NewSimulated(videoLength(sess.Analysis, st.CurrentVideoIndex), player.WithRate(rate))
	if deps.KV != nil {
		r.detach = persister.Attach(context.WithoutCancel(ctx), machine)
	}

	r.orch = orchestrator.New(orchestrator.Deps{
		Player:     r.player,
		Narrator:   deps.Narrator,
		Queue:      machine,
		Platform:   deps.Platform,
		Analysis:   sess.Analysis,
		Learner:    sess.UserName,
		Logger:     deps.Logger,
		CueVideo:   r.cue,
		OnComplete: r.complete,
		OnProgress: r.progress,
	}, deps.Options)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.player.Run(runCtx, pollEvery)
	}()
	go func() {
		defer r.wg.Done()
		for s := range r.player.Events() {
			r.orch.HandlePlayerState(runCtx, s)
		}
	}()

	log.Info().
		Int("video", st.CurrentVideoIndex).
		Int("segment", st.CurrentSegmentIndex).
		Bool("restored", snap != nil).
		Msg("learning run started")

	if st.IsLearningComplete {
		r.complete(st.LearningHistory)
		return r, nil
	}
	if err := r.orch.Start(runCtx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Run) cue(_ context.Context, index int) error {
	if err := r.player.Load(videoLength(r.analysis, index)); err != nil {
		return err
	}
	r.mu.Lock()
	first, at := r.firstCue, r.resumeAt
	r.firstCue = false
	r.mu.Unlock()
	if first && at > 0 {
		return r.player.Seek(at)
	}
	return nil
}

func (r *Run) progress(st queue.State) {
	if r.sessions == nil {
		return
	}
	vi, si := st.CurrentVideoIndex, st.CurrentSegmentIndex
	_, err := r.sessions.UpdateProgress(context.Background(), session.ProgressPatch{
		CurrentVideoIndex:   &vi,
		CurrentSegmentIndex: &si,
		History:             st.LearningHistory,
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("sync session progress")
	}
}

func (r *Run) complete(history []quiz.AnswerRecord) {
	r.once.Do(func() {
		r.mu.Lock()
		r.history = append([]quiz.AnswerRecord(nil), history...)
		r.mu.Unlock()
		if r.sessions != nil {
			if _, err := r.sessions.Complete(context.Background(), history); err != nil {
				r.log.Error().Err(err).Msg("complete session")
			}
		}
		close(r.done)
	})
}

// Orchestrator exposes the run's orchestrator for learner input.
func (r *Run) Orchestrator() *orchestrator.Orchestrator { return r.orch }

// Player exposes the simulated video.
func (r *Run) Player() *player.Simulated { return r.player }

// State is the current queue state.
func (r *Run) State() queue.State { return r.machine.State() }

// Segments returns the segments of video i.
func (r *Run) Segments(i int) []quiz.Segment {
	if i < 0 || i >= len(r.analysis) {
		return nil
	}
	return r.analysis[i].Segments
}

// Done is closed once the final video has been completed.
func (r *Run) Done() <-chan struct{} { return r.done }

// History is the final answer history, valid after Done.
func (r *Run) History() []quiz.AnswerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]quiz.AnswerRecord(nil), r.history...)
}

// Reset clears the persisted queue state, for a learner starting over.
func (r *Run) Reset(ctx context.Context) error {
	return r.persister.Clear(ctx)
}

// Close stops the run. The stored session and queue snapshot survive.
func (r *Run) Close() {
	r.orch.Close()
	if r.detach != nil {
		r.detach()
	}
	r.cancel()
	r.wg.Wait()
}

// videoLength sizes the simulated video so every question is reached.
func videoLength(analysis []quiz.VideoAnalysis, i int) time.Duration {
	if i < 0 || i >= len(analysis) {
		return TailLength
	}
	var last time.Duration
	for _, s := range analysis[i].Segments {
		if at, err := quiz.ParseTimestamp(s.Timestamp); err == nil && at > last {
			last = at
		}
	}
	return last + TailLength
}

// resumePosition places a restored run just past the last question it
// asked, or at the start of the video.
func resumePosition(analysis []quiz.VideoAnalysis, st queue.State) time.Duration {
	if st.CurrentVideoIndex >= len(analysis) {
		return 0
	}
	segs := analysis[st.CurrentVideoIndex].Segments
	k := st.CurrentSegmentIndex
	if !st.QuestionAnswered {
		k--
	}
	if k < 0 || k >= len(segs) {
		return 0
	}
	at, err := quiz.ParseTimestamp(segs[k].Timestamp)
	if err != nil {
		return 0
	}
	return at + time.Second
}
