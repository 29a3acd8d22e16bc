package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vidquiz/internal/analysis"
	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/speech"
)

type fakeAnalyzer struct {
	results []quiz.VideoAnalysis
	report  *quiz.Report
	err     error

	gotLang quiz.Language
	gotName string
}

func (f *fakeAnalyzer) AnalyzeAll(_ context.Context, urls []string, lang quiz.Language) ([]quiz.VideoAnalysis, error) {
	f.gotLang = lang
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeAnalyzer) GenerateReport(_ context.Context, _ []quiz.AnswerRecord, name string) (*quiz.Report, error) {
	f.gotName = name
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func echoSynth() speech.Synthesizer {
	return speech.SynthesizerFunc(func(_ context.Context, text string) ([]byte, error) {
		if text == "fail" {
			return nil, errors.New("tts down")
		}
		return []byte("mp3:" + text), nil
	})
}

func post(t *testing.T, s *Server, path, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func errorOf(t *testing.T, data []byte) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestSpeak(t *testing.T) {
	s := New(echoSynth(), &fakeAnalyzer{}, zerolog.Nop())

	resp, data := post(t, s, "/api/speak", `{"text":"hello"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "mp3:hello", string(data))

	resp, data = post(t, s, "/api/speak", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No text provided", errorOf(t, data))

	resp, data = post(t, s, "/api/speak", `{"text":"fail"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "tts down", errorOf(t, data))
}

func TestAnalyze(t *testing.T) {
	fa := &fakeAnalyzer{results: []quiz.VideoAnalysis{{
		URL:      "https://youtu.be/aaaaaaaaaaa",
		Segments: []quiz.Segment{{Timestamp: "1:00", Question: "Q", Answers: []string{"a", "b", "c", "d"}}},
	}}}
	s := New(echoSynth(), fa, zerolog.Nop())

	resp, data := post(t, s, "/api/analyze", `{"videos":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No videos provided", errorOf(t, data))

	resp, data = post(t, s, "/api/analyze", `{"videos":["https://youtu.be/aaaaaaaaaaa","https://example.com/watch?v=1"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Please ensure all video URLs are valid YouTube URLs", errorOf(t, data))
	assert.Empty(t, fa.gotLang, "malformed URLs never reach the analyzer")

	resp, data = post(t, s, "/api/analyze", `{"videos":["https://youtu.be/aaaaaaaaaaa"],"language":"Spanish"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status   string               `json:"status"`
		Results  []quiz.VideoAnalysis `json:"results"`
		Language string               `json:"language"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "spanish", body.Language)
	assert.Equal(t, quiz.Spanish, fa.gotLang)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Q", body.Results[0].Segments[0].Question)
}

func TestAnalyzeFailures(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		fa := &fakeAnalyzer{err: &analysis.VideoError{URL: "x", Err: errors.New("quota")}}
		resp, data := post(t, New(echoSynth(), fa, zerolog.Nop()), "/api/analyze", `{"videos":["https://youtu.be/aaaaaaaaaaa"]}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "error analyzing video x: quota", errorOf(t, data))
	})

	t.Run("invalid payload", func(t *testing.T) {
		fa := &fakeAnalyzer{err: &analysis.VideoError{URL: "x", Err: &quiz.ValidationError{Field: "answers", Message: "bad"}}}
		resp, _ := post(t, New(echoSynth(), fa, zerolog.Nop()), "/api/analyze", `{"videos":["https://youtu.be/aaaaaaaaaaa"]}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestGenerateReport(t *testing.T) {
	fa := &fakeAnalyzer{report: &quiz.Report{
		Strengths:       []string{"s1"},
		Improvements:    []string{"i1"},
		Recommendations: []string{"r1"},
	}}
	s := New(echoSynth(), fa, zerolog.Nop())

	resp, data := post(t, s, "/api/generate-report", `{"learningHistory":[],"userName":"Maya"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No learning history provided", errorOf(t, data))

	resp, data = post(t, s, "/api/generate-report",
		`{"learningHistory":[{"videoIndex":0,"segmentIndex":0,"answer":1,"isCorrect":true,"question":"Q"}],"userName":"Maya"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string      `json:"status"`
		Data   quiz.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, []string{"s1"}, body.Data.Strengths)
	assert.Equal(t, "Maya", fa.gotName)
}

func TestHealthAndMetrics(t *testing.T) {
	s := New(echoSynth(), &fakeAnalyzer{}, zerolog.Nop())
	post(t, s, "/api/speak", `{"text":"hi"}`)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "vidquiz_speech_audio_bytes_total 6")
	assert.Contains(t, string(data), `vidquiz_http_requests_total{method="POST",route="/api/speak",status="200"} 1`)
}
