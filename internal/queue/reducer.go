package queue

import (
	"encoding/json"
	"time"

	"github.com/abhisek/vidquiz/internal/quiz"
)

// SnapshotMaxAge is how long a persisted queue snapshot stays usable.
const SnapshotMaxAge = 24 * time.Hour

// Action is a state transition. The set of actions is closed; only the
// types in this package implement it.
type Action interface {
	apply(s State) State
	Name() string
}

// Reduce returns the state that results from applying a to s. The input
// state is never modified.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s.clone())
}

// NextVideo advances to the next video and shows the transition screen.
type NextVideo struct{}

func (NextVideo) Name() string { return "next_video" }

func (NextVideo) apply(s State) State {
	s.CurrentVideoIndex++
	s.CurrentSegmentIndex = 0
	s.ShowVideoTransition = true
	s.ShowQuestion = false
	s.ShowCharacter = false
	s.SelectedAnswer = nil
	s.CharacterState = CharacterIdle
	s.AudioState = AudioIdle
	s.IsAnswerSelectionEnabled = true
	s.QuestionAnswered = false
	s.VideoEnded = false
	s.IsBuffering = false
	return s
}

// RecordAnswer appends one answer to the learning history, tagged with the
// current video and segment.
type RecordAnswer struct {
	Answer        int
	IsCorrect     bool
	Question      string
	CorrectAnswer string
	UserAnswer    string
	At            time.Time
}

func (RecordAnswer) Name() string { return "record_answer" }

func (a RecordAnswer) apply(s State) State {
	s.LearningHistory = append(s.LearningHistory, quiz.AnswerRecord{
		VideoIndex:    s.CurrentVideoIndex,
		SegmentIndex:  s.CurrentSegmentIndex,
		Answer:        a.Answer,
		IsCorrect:     a.IsCorrect,
		Question:      a.Question,
		CorrectAnswer: a.CorrectAnswer,
		UserAnswer:    a.UserAnswer,
		CreatedAt:     a.At,
	})
	answer := a.Answer
	s.SelectedAnswer = &answer
	s.IsAnswerSelectionEnabled = false
	return s
}

// SetSegment moves the segment cursor.
type SetSegment struct{ Index int }

func (SetSegment) Name() string { return "set_segment" }

func (a SetSegment) apply(s State) State {
	s.CurrentSegmentIndex = a.Index
	return s
}

// SetDisplay toggles the question card and the character. Nil fields are
// left unchanged.
type SetDisplay struct {
	ShowQuestion  *bool
	ShowCharacter *bool
}

func (SetDisplay) Name() string { return "set_display" }

func (a SetDisplay) apply(s State) State {
	if a.ShowQuestion != nil {
		s.ShowQuestion = *a.ShowQuestion
	}
	if a.ShowCharacter != nil {
		s.ShowCharacter = *a.ShowCharacter
	}
	return s
}

// SetSpeaking reflects narration starting or stopping. Speaking always
// brings the character on screen.
type SetSpeaking struct{ Speaking bool }

func (SetSpeaking) Name() string { return "set_speaking" }

func (a SetSpeaking) apply(s State) State {
	s.ShowCharacter = true
	if a.Speaking {
		s.AudioState = AudioPlaying
		s.CharacterState = CharacterSpeaking
		s.IsAnswerSelectionEnabled = false
		return s
	}
	s.AudioState = AudioIdle
	s.CharacterState = CharacterIdle
	return s
}

// SetCharacter sets the character state directly.
type SetCharacter struct{ State CharacterState }

func (SetCharacter) Name() string { return "set_character" }

func (a SetCharacter) apply(s State) State {
	s.CharacterState = a.State
	return s
}

// SetBuffering sets the buffering flag.
type SetBuffering struct{ Buffering bool }

func (SetBuffering) Name() string { return "set_buffering" }

func (a SetBuffering) apply(s State) State {
	s.IsBuffering = a.Buffering
	return s
}

// SelectAnswer highlights the chosen option and reacts with the
// character.
type SelectAnswer struct {
	Index     int
	IsCorrect bool
}

func (SelectAnswer) Name() string { return "select_answer" }

func (a SelectAnswer) apply(s State) State {
	idx := a.Index
	s.SelectedAnswer = &idx
	s.ShowCharacter = true
	s.IsAnswerSelectionEnabled = false
	if a.IsCorrect {
		s.CharacterState = CharacterCorrect
	} else {
		s.CharacterState = CharacterIncorrect
	}
	return s
}

// PresentQuestion moves to segment Index and prepares a fresh question.
// Answering stays disabled until narration completes. With Visible false
// the card stays hidden until the learner taps to start.
type PresentQuestion struct {
	Index   int
	Visible bool
}

func (PresentQuestion) Name() string { return "present_question" }

func (a PresentQuestion) apply(s State) State {
	s.CurrentSegmentIndex = a.Index
	s.ShowQuestion = a.Visible
	s.ShowCharacter = a.Visible
	s.IsBuffering = false
	s.SelectedAnswer = nil
	s.QuestionAnswered = false
	s.IsAnswerSelectionEnabled = false
	return s
}

// ResetQuestion clears the selection and answered flag.
type ResetQuestion struct{}

func (ResetQuestion) Name() string { return "reset_question" }

func (ResetQuestion) apply(s State) State {
	s.SelectedAnswer = nil
	s.QuestionAnswered = false
	s.IsBuffering = false
	s.CharacterState = CharacterIdle
	s.IsAnswerSelectionEnabled = true
	return s
}

// MarkAnswered closes the current question and hides the card.
type MarkAnswered struct{}

func (MarkAnswered) Name() string { return "mark_answered" }

func (MarkAnswered) apply(s State) State {
	s.ShowQuestion = false
	s.ShowCharacter = false
	s.QuestionAnswered = true
	s.IsAnswerSelectionEnabled = true
	s.CharacterState = CharacterIdle
	return s
}

// EnableAnswers allows option selection once narration has finished.
type EnableAnswers struct{}

func (EnableAnswers) Name() string { return "enable_answers" }

func (EnableAnswers) apply(s State) State {
	s.IsAnswerSelectionEnabled = true
	s.AudioState = AudioIdle
	return s
}

// DisableAnswers blocks option selection.
type DisableAnswers struct{}

func (DisableAnswers) Name() string { return "disable_answers" }

func (DisableAnswers) apply(s State) State {
	s.IsAnswerSelectionEnabled = false
	return s
}

// StartVideo dismisses the transition screen.
type StartVideo struct{}

func (StartVideo) Name() string { return "start_video" }

func (StartVideo) apply(s State) State {
	s.ShowVideoTransition = false
	s.ShowQuestion = false
	s.VideoEnded = false
	s.IsBuffering = false
	return s
}

// EndVideo marks the current video as finished.
type EndVideo struct{}

func (EndVideo) Name() string { return "end_video" }

func (EndVideo) apply(s State) State {
	s.VideoEnded = true
	s.ShowQuestion = false
	s.ShowCharacter = false
	return s
}

// EndLearning marks the whole run complete.
type EndLearning struct{}

func (EndLearning) Name() string { return "end_learning" }

func (EndLearning) apply(s State) State {
	s.IsLearningComplete = true
	s.ShowQuestion = false
	s.ShowCharacter = false
	return s
}

// SetLanguage changes the explanation language.
type SetLanguage struct{ Language quiz.Language }

func (SetLanguage) Name() string { return "set_language" }

func (a SetLanguage) apply(s State) State {
	if a.Language == "" {
		a.Language = quiz.DefaultLanguage
	}
	s.SelectedLanguage = a.Language
	return s
}

// Restore merges a persisted snapshot into the state when it is younger
// than SnapshotMaxAge at Now. Fields missing from the snapshot keep their
// current values. Playback-bound flags are reset since the player starts
// fresh after a restore.
type Restore struct {
	Snapshot *Snapshot
	Now      time.Time
}

func (Restore) Name() string { return "restore" }

func (a Restore) apply(s State) State {
	if a.Snapshot == nil || a.Snapshot.Stale(a.Now) {
		return s
	}
	merged := s
	if err := json.Unmarshal(a.Snapshot.raw, &merged); err != nil {
		return s
	}
	if merged.LearningHistory == nil {
		merged.LearningHistory = []quiz.AnswerRecord{}
	}
	merged.ShowQuestion = false
	merged.ShowCharacter = false
	merged.IsBuffering = false
	merged.VideoEnded = false
	merged.SelectedAnswer = nil
	merged.AudioState = AudioIdle
	merged.CharacterState = CharacterIdle
	merged.IsAnswerSelectionEnabled = true
	// A snapshot taken between recording an answer and marking it answered
	// must not ask the same question again.
	if n := len(merged.LearningHistory); n > 0 {
		last := merged.LearningHistory[n-1]
		if last.VideoIndex == merged.CurrentVideoIndex && last.SegmentIndex == merged.CurrentSegmentIndex {
			merged.QuestionAnswered = true
		}
	}
	return merged
}
