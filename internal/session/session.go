// Package session keeps the learner's session (videos, analysis, identity
// and progress) in memory and mirrors every change to durable storage.
package session

import (
	"errors"
	"time"

	"github.com/abhisek/vidquiz/internal/quiz"
)

// StorageKey is the key the session is persisted under.
const StorageKey = "learningSession"

// MaxAge is how long an incomplete session survives.
const MaxAge = 24 * time.Hour

// ErrNoActiveSession is returned when mutating without a current session.
var ErrNoActiveSession = errors.New("no active session")

// Progress is the learner's position and answer history.
type Progress struct {
	CurrentVideoIndex   int                 `json:"currentVideoIndex"`
	CurrentSegmentIndex int                 `json:"currentSegmentIndex"`
	History             []quiz.AnswerRecord `json:"history"`
}

// Session is the top-level persisted learning session.
type Session struct {
	ID               string               `json:"id"`
	StartTime        time.Time            `json:"startTime"`
	EndTime          *time.Time           `json:"endTime,omitempty"`
	UserName         string               `json:"userName"`
	SelectedLanguage quiz.Language        `json:"selectedLanguage"`
	Videos           []string             `json:"videos"`
	Analysis         []quiz.VideoAnalysis `json:"analysis"`
	Progress         Progress             `json:"progress"`
	IsComplete       bool                 `json:"isComplete"`
	FinalHistory     []quiz.AnswerRecord  `json:"finalHistory,omitempty"`
}

// Expired reports whether the session is too old to resume at now.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.StartTime) >= MaxAge
}

// Stage is the screen a session resumes into.
type Stage int

const (
	StageVideoInput Stage = iota
	StageNameInput
	StageLearning
	StageReport
)

func (s Stage) String() string {
	switch s {
	case StageNameInput:
		return "name-input"
	case StageLearning:
		return "learning"
	case StageReport:
		return "report"
	default:
		return "video-input"
	}
}

// Stage derives where the learner should land for this session.
func (s *Session) Stage() Stage {
	switch {
	case s == nil || len(s.Videos) == 0 || len(s.Analysis) == 0:
		return StageVideoInput
	case s.IsComplete:
		return StageReport
	case s.UserName == "":
		return StageNameInput
	default:
		return StageLearning
	}
}

// CanNavigateBack reports whether leaving the learning screen is allowed,
// which is only the case before any answer was recorded.
func (s *Session) CanNavigateBack() bool {
	return s == nil || len(s.Progress.History) == 0
}

// ValidState is the recovery point derived from a session.
type ValidState struct {
	VideoIndex       int
	SegmentIndex     int
	History          []quiz.AnswerRecord
	SelectedLanguage quiz.Language
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Videos = append([]string(nil), s.Videos...)
	c.Analysis = append([]quiz.VideoAnalysis(nil), s.Analysis...)
	c.Progress.History = append([]quiz.AnswerRecord(nil), s.Progress.History...)
	if s.FinalHistory != nil {
		c.FinalHistory = append([]quiz.AnswerRecord(nil), s.FinalHistory...)
	}
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return &c
}

// ProgressPatch updates individual progress fields; nil fields are left
// unchanged.
type ProgressPatch struct {
	CurrentVideoIndex   *int
	CurrentSegmentIndex *int
	History             []quiz.AnswerRecord
}

// Patch updates individual session fields; nil fields are left unchanged
// and Progress is merged field by field.
type Patch struct {
	UserName         *string
	SelectedLanguage *quiz.Language
	EndTime          *time.Time
	IsComplete       *bool
	FinalHistory     []quiz.AnswerRecord
	Progress         *ProgressPatch
}

func (p ProgressPatch) apply(pr *Progress) {
	if p.CurrentVideoIndex != nil {
		pr.CurrentVideoIndex = *p.CurrentVideoIndex
	}
	if p.CurrentSegmentIndex != nil {
		pr.CurrentSegmentIndex = *p.CurrentSegmentIndex
	}
	if p.History != nil {
		pr.History = append([]quiz.AnswerRecord(nil), p.History...)
	}
}

func (p Patch) apply(s *Session) {
	if p.UserName != nil {
		s.UserName = *p.UserName
	}
	if p.SelectedLanguage != nil {
		s.SelectedLanguage = *p.SelectedLanguage
	}
	if p.EndTime != nil {
		t := *p.EndTime
		s.EndTime = &t
	}
	if p.IsComplete != nil {
		s.IsComplete = *p.IsComplete
	}
	if p.FinalHistory != nil {
		s.FinalHistory = append([]quiz.AnswerRecord(nil), p.FinalHistory...)
	}
	if p.Progress != nil {
		p.Progress.apply(&s.Progress)
	}
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }
