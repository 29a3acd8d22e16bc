// Package queue holds the learning queue state and the reducer that
// drives it through videos, questions and answers.
package queue

import (
	"github.com/abhisek/vidquiz/internal/quiz"
)

// CharacterState is what the narrator character is doing.
type CharacterState string

const (
	CharacterIdle      CharacterState = "idle"
	CharacterSpeaking  CharacterState = "speaking"
	CharacterCorrect   CharacterState = "correct"
	CharacterIncorrect CharacterState = "incorrect"
)

// AudioState is the narration playback state.
type AudioState string

const (
	AudioIdle    AudioState = "idle"
	AudioPlaying AudioState = "playing"
)

// State is the complete learning queue state.
type State struct {
	CurrentVideoIndex   int                 `json:"currentVideoIndex"`
	CurrentSegmentIndex int                 `json:"currentSegmentIndex"`
	TotalVideos         int                 `json:"totalVideos"`
	LearningHistory     []quiz.AnswerRecord `json:"learningHistory"`

	ShowVideoTransition bool `json:"showVideoTransition"`
	IsLearningComplete  bool `json:"isLearningComplete"`
	ShowQuestion        bool `json:"showQuestion"`
	ShowCharacter       bool `json:"showCharacter"`
	IsBuffering         bool `json:"isBuffering"`
	VideoEnded          bool `json:"videoEnded"`
	QuestionAnswered    bool `json:"questionAnswered"`

	IsAnswerSelectionEnabled bool `json:"isAnswerSelectionEnabled"`

	// SelectedAnswer is nil until the learner picks an option.
	SelectedAnswer *int `json:"selectedAnswer"`

	CharacterState   CharacterState `json:"characterState"`
	AudioState       AudioState     `json:"audioState"`
	SelectedLanguage quiz.Language  `json:"selectedLanguage"`
}

// Initial returns the state at the start of a learning run over
// totalVideos videos.
func Initial(totalVideos int, lang quiz.Language) State {
	if lang == "" {
		lang = quiz.DefaultLanguage
	}
	return State{
		TotalVideos:              totalVideos,
		LearningHistory:          []quiz.AnswerRecord{},
		IsAnswerSelectionEnabled: true,
		CharacterState:           CharacterIdle,
		AudioState:               AudioIdle,
		SelectedLanguage:         lang,
	}
}

// Score is the number of correct answers so far.
func (s State) Score() int {
	return quiz.Score(s.LearningHistory)
}

// IsLastVideo reports whether the current video is the final one.
func (s State) IsLastVideo() bool {
	return s.CurrentVideoIndex >= s.TotalVideos-1
}

func (s State) clone() State {
	c := s
	c.LearningHistory = append([]quiz.AnswerRecord(nil), s.LearningHistory...)
	if c.LearningHistory == nil {
		c.LearningHistory = []quiz.AnswerRecord{}
	}
	if s.SelectedAnswer != nil {
		v := *s.SelectedAnswer
		c.SelectedAnswer = &v
	}
	return c
}
