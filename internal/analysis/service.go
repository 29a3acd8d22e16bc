// Package analysis turns video URLs into quiz segments and answer histories
// into performance reports using an LLM provider.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/llm"
	"github.com/abhisek/vidquiz/internal/quiz"
)

var (
	// ErrNoVideos is returned when an analysis request carries no URLs.
	ErrNoVideos = errors.New("no videos provided")

	// ErrNoHistory is returned when a report is requested without answers.
	ErrNoHistory = errors.New("no learning history provided")
)

// VideoError reports which video failed analysis.
type VideoError struct {
	URL string
	Err error
}

func (e *VideoError) Error() string {
	return fmt.Sprintf("error analyzing video %s: %v", e.URL, e.Err)
}

func (e *VideoError) Unwrap() error { return e.Err }

// Service generates quiz content and reports.
type Service struct {
	provider llm.Provider
	cfg      Config
	log      zerolog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithRand sets the source used to shuffle answer positions.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rnd = r }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l.With().Str("component", "analysis").Logger() }
}

// NewService creates an analysis service.
func NewService(provider llm.Provider, cfg Config, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		cfg:      cfg,
		log:      zerolog.Nop(),
		rnd:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type segmentOutput struct {
	Timestamp           string                   `json:"timestamp"`
	ContentCovered      string                   `json:"content_covered"`
	Question            string                   `json:"question"`
	Answers             []string                 `json:"answers"`
	Praise              string                   `json:"praise"`
	Explanation         string                   `json:"explanation"`
	DetailedExplanation quiz.DetailedExplanation `json:"detailed_explanation"`
}

type analysisOutput struct {
	Segments []segmentOutput `json:"segments"`
}

// AnalyzeAll analyzes each URL in order. The first failure aborts the run.
func (s *Service) AnalyzeAll(ctx context.Context, urls []string, lang quiz.Language) ([]quiz.VideoAnalysis, error) {
	if len(urls) == 0 {
		return nil, ErrNoVideos
	}
	out := make([]quiz.VideoAnalysis, 0, len(urls))
	for _, u := range urls {
		va, err := s.AnalyzeVideo(ctx, u, lang)
		if err != nil {
			return nil, &VideoError{URL: u, Err: err}
		}
		out = append(out, *va)
	}
	return out, nil
}

// AnalyzeVideo produces the quiz segments for one video.
func (s *Service) AnalyzeVideo(ctx context.Context, url string, lang quiz.Language) (*quiz.VideoAnalysis, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeVideoAnalysis)
	s.log.Info().Str("url", url).Str("language", string(lang)).Msg("analyzing video")

	media := []llm.Media{{URI: url, MIMEType: s.cfg.VideoMIMEType}}
	if thumb := quiz.ThumbnailURL(url); s.cfg.AttachThumbnail && thumb != "" {
		media = append(media, llm.Media{URI: thumb, MIMEType: "image/jpeg"})
	}

	req := llm.Request{
		System: analysisSystemPrompt,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: buildAnalysisUserMessage(lang),
			Media:   media,
		}},
		Schema:      SegmentsSchema,
		MaxTokens:   s.cfg.AnalysisMaxTokens,
		Temperature: s.cfg.AnalysisTemperature,
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("video analysis: %w", err)
	}

	var raw analysisOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	if len(raw.Segments) == 0 {
		return nil, &quiz.ValidationError{Field: "segments", Message: "response missing required segments"}
	}

	va := quiz.VideoAnalysis{URL: url, Segments: make([]quiz.Segment, 0, len(raw.Segments))}
	for i, seg := range raw.Segments {
		if len(seg.Answers) != quiz.AnswerCount {
			return nil, &quiz.ValidationError{
				Field:   "answers",
				Message: fmt.Sprintf("segment %d must have exactly %d answers", i, quiz.AnswerCount),
			}
		}
		answers, correct := s.shuffle(seg.Answers)
		va.Segments = append(va.Segments, quiz.Segment{
			Timestamp:           strings.TrimSpace(seg.Timestamp),
			ContentCovered:      seg.ContentCovered,
			Question:            seg.Question,
			Answers:             answers,
			CorrectIndex:        correct,
			Praise:              seg.Praise,
			Explanation:         seg.Explanation,
			DetailedExplanation: seg.DetailedExplanation,
		})
	}

	// Round-trip through the payload contract so every consumer sees the
	// same validated, normalized shape.
	payload, err := json.Marshal(va)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	parsed, err := quiz.ParseAnalysis(payload)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("url", url).Int("segments", len(parsed.Segments)).Msg("video analyzed")
	return parsed, nil
}

// shuffle randomizes answer positions. The first answer is the correct one
// on input; the returned index locates it in the shuffled slice.
func (s *Service) shuffle(answers []string) ([]string, int) {
	out := make([]string, len(answers))
	copy(out, answers)
	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}

	s.mu.Lock()
	s.rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	s.mu.Unlock()

	correct := 0
	for pos, src := range order {
		out[pos] = answers[src]
		if src == 0 {
			correct = pos
		}
	}
	return out, correct
}

type reportOutput struct {
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
}

// GenerateReport summarizes the learner's answers.
func (s *Service) GenerateReport(ctx context.Context, history []quiz.AnswerRecord, name string) (*quiz.Report, error) {
	if len(history) == 0 {
		return nil, ErrNoHistory
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeReport)

	msg, err := buildReportUserMessage(history, name)
	if err != nil {
		return nil, err
	}
	req := llm.Request{
		System:      reportSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      ReportSchema,
		MaxTokens:   s.cfg.ReportMaxTokens,
		Temperature: s.cfg.ReportTemperature,
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("report generation: %w", err)
	}

	var out reportOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse report response: %w", err)
	}
	for field, v := range map[string][]string{
		"strengths":       out.Strengths,
		"improvements":    out.Improvements,
		"recommendations": out.Recommendations,
	} {
		if v == nil {
			return nil, &quiz.ValidationError{Field: field, Message: "missing required field: " + field}
		}
	}

	return &quiz.Report{
		Strengths:       out.Strengths,
		Improvements:    out.Improvements,
		Recommendations: out.Recommendations,
	}, nil
}
