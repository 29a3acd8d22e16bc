// Package screens holds what the individual screens share: the navigation
// flow between them and the collaborators they call into.
package screens

import (
	"context"

	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/screen"
	"github.com/abhisek/vidquiz/internal/session"
)

// Flow builds the screens of the learning journey. Screens use it to
// navigate without importing one another.
type Flow interface {
	Home() screen.Screen
	Setup() screen.Screen
	Processing(req Request) screen.Screen
	Learning(sess *session.Session) screen.Screen
	Report(sess *session.Session) screen.Screen
}

// Request is what the learner entered on the setup screen.
type Request struct {
	Videos   []string
	Language quiz.Language
	Name     string
}

// Analyzer produces quiz content and reports, locally or over HTTP.
type Analyzer interface {
	AnalyzeAll(ctx context.Context, urls []string, lang quiz.Language) ([]quiz.VideoAnalysis, error)
	GenerateReport(ctx context.Context, history []quiz.AnswerRecord, name string) (*quiz.Report, error)
}

// Sessions is the part of the session store the screens use.
type Sessions interface {
	Current() *session.Session
	StartNew(ctx context.Context, videos []string, analysis []quiz.VideoAnalysis, lang quiz.Language) (*session.Session, error)
	Update(ctx context.Context, p session.Patch) (*session.Session, error)
	Clear(ctx context.Context) error
}

// Snapshots clears the persisted queue state.
type Snapshots interface {
	Clear(ctx context.Context) error
}
