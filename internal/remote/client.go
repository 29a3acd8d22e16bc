// Package remote is the HTTP client for a vidquiz backend started with
// `vidquiz serve`.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/abhisek/vidquiz/internal/quiz"
)

// DefaultTimeout bounds a single backend call. Analysis of long videos can
// take minutes.
const DefaultTimeout = 5 * time.Minute

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// ErrEmptyAudio is returned when the speak endpoint answers with no bytes.
var ErrEmptyAudio = errors.New("received empty audio data")

// SpeakRequest is the /api/speak body.
type SpeakRequest struct {
	Text string `json:"text"`
}

// AnalyzeRequest is the /api/analyze body.
type AnalyzeRequest struct {
	Videos   []string      `json:"videos"`
	Language quiz.Language `json:"language,omitempty"`
}

// AnalyzeResponse is the /api/analyze success body.
type AnalyzeResponse struct {
	Status   string               `json:"status"`
	Results  []quiz.VideoAnalysis `json:"results"`
	Language quiz.Language        `json:"language"`
}

// ReportRequest is the /api/generate-report body.
type ReportRequest struct {
	LearningHistory []quiz.AnswerRecord `json:"learningHistory"`
	UserName        string              `json:"userName"`
}

// ReportResponse is the /api/generate-report success body.
type ReportResponse struct {
	Status string      `json:"status"`
	Data   quiz.Report `json:"data"`
}

// ErrorResponse is the error body every endpoint uses.
type ErrorResponse struct {
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client talks to the backend.
type Client struct {
	http *resty.Client
}

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: c}
}

// Synthesize implements speech.Synthesizer against /api/speak.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(SpeakRequest{Text: text}).
		SetError(&ErrorResponse{}).
		SetHeader("Accept", "audio/mpeg").
		Post("/api/speak")
	if err != nil {
		return nil, fmt.Errorf("speak request: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, ErrEmptyAudio
	}
	return body, nil
}

// AnalyzeAll requests quiz content for the given videos.
func (c *Client) AnalyzeAll(ctx context.Context, urls []string, lang quiz.Language) ([]quiz.VideoAnalysis, error) {
	var out AnalyzeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(AnalyzeRequest{Videos: urls, Language: lang}).
		SetResult(&out).
		SetError(&ErrorResponse{}).
		Post("/api/analyze")
	if err != nil {
		return nil, fmt.Errorf("analyze request: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	if out.Status != "success" {
		return nil, &APIError{Status: resp.StatusCode(), Message: "analysis failed"}
	}
	for i := range out.Results {
		quiz.Normalize(&out.Results[i])
	}
	return out.Results, nil
}

// GenerateReport requests a performance report for the history.
func (c *Client) GenerateReport(ctx context.Context, history []quiz.AnswerRecord, name string) (*quiz.Report, error) {
	var out ReportResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ReportRequest{LearningHistory: history, UserName: name}).
		SetResult(&out).
		SetError(&ErrorResponse{}).
		Post("/api/generate-report")
	if err != nil {
		return nil, fmt.Errorf("report request: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	if out.Status != "success" {
		return nil, &APIError{Status: resp.StatusCode(), Message: "report generation failed"}
	}
	return &out.Data, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	return apiError(resp)
}

func apiError(resp *resty.Response) error {
	if !resp.IsError() && resp.StatusCode() < http.StatusBadRequest {
		return nil
	}
	e := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*ErrorResponse); ok && body != nil {
		e.Message = body.Error
		if e.Message == "" {
			e.Message = body.Message
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(resp.String())
	}
	return e
}
