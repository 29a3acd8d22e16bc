package quiz

import (
	"strings"
	"time"
)

// Placeholder texts used when the analysis service omits a detailed
// explanation or its translation.
const (
	ExplanationUnavailable = "Detailed explanation not available"
	TranslationUnavailable = "Translation not available"
)

// AnswerCount is the number of options every segment must offer.
const AnswerCount = 4

// Segment is one quiz checkpoint within a video.
type Segment struct {
	// Timestamp is the "m:ss" playback position at which the video pauses.
	Timestamp      string `json:"timestamp"`
	ContentCovered string `json:"content_covered,omitempty"`
	Question       string `json:"question"`

	// Answers holds exactly AnswerCount options in display order.
	Answers      []string `json:"answers"`
	CorrectIndex int      `json:"correct_index"`

	// Praise is spoken after a correct answer, Explanation after an
	// incorrect one.
	Praise              string              `json:"praise"`
	Explanation         string              `json:"explanation"`
	DetailedExplanation DetailedExplanation `json:"detailed_explanation"`
}

// DetailedExplanation carries the long-form explanation shown after an
// incorrect answer, in English and in the learner's selected language.
type DetailedExplanation struct {
	English    string `json:"english"`
	Translated string `json:"translated"`
}

// HasTranslation reports whether a usable translated explanation exists.
func (d DetailedExplanation) HasTranslation() bool {
	t := strings.TrimSpace(d.Translated)
	return t != "" && t != TranslationUnavailable
}

// CorrectAnswer returns the text of the correct option, or "" when the
// index is out of range.
func (s Segment) CorrectAnswer() string {
	if s.CorrectIndex < 0 || s.CorrectIndex >= len(s.Answers) {
		return ""
	}
	return s.Answers[s.CorrectIndex]
}

// At returns the playback offset of the segment.
func (s Segment) At() (time.Duration, error) {
	return ParseTimestamp(s.Timestamp)
}

// VideoAnalysis is the quiz content produced for one video.
type VideoAnalysis struct {
	URL      string    `json:"url"`
	Segments []Segment `json:"segments"`
}

// AnswerRecord is the immutable record of one answered question.
type AnswerRecord struct {
	VideoIndex    int       `json:"videoIndex"`
	SegmentIndex  int       `json:"segmentIndex"`
	Answer        int       `json:"answer"`
	IsCorrect     bool      `json:"isCorrect"`
	Question      string    `json:"question"`
	CorrectAnswer string    `json:"correctAnswer"`
	UserAnswer    string    `json:"userAnswer"`
	CreatedAt     time.Time `json:"timestamp"`
}

// Report is the learner performance summary produced from the answer history.
type Report struct {
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
}

// Score returns the number of correct answers in history.
func Score(history []AnswerRecord) int {
	n := 0
	for _, r := range history {
		if r.IsCorrect {
			n++
		}
	}
	return n
}
