package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vidquiz/internal/llm"
	"github.com/abhisek/vidquiz/internal/quiz"
)

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func segmentsJSON() json.RawMessage {
	return json.RawMessage(`{
		"segments": [
			{
				"timestamp": "3:10",
				"content_covered": "Evaporation",
				"question": "Hey explorer! What happens to water when the sun heats it?",
				"answers": ["It evaporates", "It freezes", "It sinks", "It turns to salt"],
				"praise": "Great job! Heat turns water into vapour.",
				"explanation": "Let's understand this better: heat makes water evaporate.",
				"detailed_explanation": {"english": "Heat gives water molecules energy...", "translated": ""}
			},
			{
				"timestamp": "1:05",
				"content_covered": "The water cycle",
				"question": "What is the water cycle?",
				"answers": ["Water moving around Earth", "A bicycle", "A cloud", "Rain only"],
				"praise": "Exactly right!",
				"explanation": "The water cycle is how water moves.",
				"detailed_explanation": {"english": "", "translated": "El ciclo del agua..."}
			}
		]
	}`)
}

func newTestService(mock *llm.MockProvider) *Service {
	return NewService(mock, DefaultConfig(), WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestAnalyzeVideo(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: segmentsJSON()})
	svc := newTestService(mock)

	va, err := svc.AnalyzeVideo(context.Background(), videoURL, quiz.Spanish)
	require.NoError(t, err)

	assert.Equal(t, videoURL, va.URL)
	require.Len(t, va.Segments, 2)

	// Sorted by timestamp.
	assert.Equal(t, "1:05", va.Segments[0].Timestamp)
	assert.Equal(t, "3:10", va.Segments[1].Timestamp)

	// The correct answer survives the shuffle.
	assert.Equal(t, "Water moving around Earth", va.Segments[0].CorrectAnswer())
	assert.Equal(t, "It evaporates", va.Segments[1].CorrectAnswer())
	assert.ElementsMatch(t, []string{"It evaporates", "It freezes", "It sinks", "It turns to salt"}, va.Segments[1].Answers)

	// Placeholders fill missing explanations.
	assert.Equal(t, quiz.ExplanationUnavailable, va.Segments[0].DetailedExplanation.English)
	assert.Equal(t, quiz.TranslationUnavailable, va.Segments[1].DetailedExplanation.Translated)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	require.Len(t, req.Messages, 1)
	require.Len(t, req.Messages[0].Media, 2)
	assert.Equal(t, videoURL, req.Messages[0].Media[0].URI)
	assert.Equal(t, "video/*", req.Messages[0].Media[0].MIMEType)
	assert.Equal(t, quiz.ThumbnailURL(videoURL), req.Messages[0].Media[1].URI)
	assert.Equal(t, "image/jpeg", req.Messages[0].Media[1].MIMEType)
	assert.Contains(t, req.Messages[0].Content, "Spanish")
	assert.Equal(t, 8192, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	assert.Same(t, SegmentsSchema, req.Schema)
}

func TestShufflePlacesCorrectAnswerEverywhere(t *testing.T) {
	svc := newTestService(llm.NewMockProvider())
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		answers, correct := svc.shuffle([]string{"right", "a", "b", "c"})
		require.Equal(t, "right", answers[correct])
		seen[correct] = true
	}
	assert.Len(t, seen, quiz.AnswerCount)
}

func TestAnalyzeVideoRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no segments", `{"segments": []}`},
		{"three answers", `{"segments": [{"timestamp": "1:00", "question": "Q", "answers": ["a","b","c"], "praise": "p", "explanation": "e", "detailed_explanation": {"english": "x", "translated": "y"}}]}`},
		{"bad timestamp", `{"segments": [{"timestamp": "soon", "question": "Q", "answers": ["a","b","c","d"], "praise": "p", "explanation": "e", "detailed_explanation": {"english": "x", "translated": "y"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(tt.content)})
			_, err := newTestService(mock).AnalyzeVideo(context.Background(), videoURL, quiz.English)
			var verr *quiz.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestAnalyzeAll(t *testing.T) {
	t.Run("no videos", func(t *testing.T) {
		_, err := newTestService(llm.NewMockProvider()).AnalyzeAll(context.Background(), nil, quiz.English)
		require.ErrorIs(t, err, ErrNoVideos)
	})

	t.Run("keeps order", func(t *testing.T) {
		mock := llm.NewMockProvider(
			llm.MockResponse{Content: segmentsJSON()},
			llm.MockResponse{Content: segmentsJSON()},
		)
		out, err := newTestService(mock).AnalyzeAll(context.Background(), []string{"https://youtu.be/aaaaaaaaaaa", "https://youtu.be/bbbbbbbbbbb"}, quiz.English)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "https://youtu.be/aaaaaaaaaaa", out[0].URL)
		assert.Equal(t, "https://youtu.be/bbbbbbbbbbb", out[1].URL)
	})

	t.Run("names the failing video", func(t *testing.T) {
		mock := llm.NewMockProvider(
			llm.MockResponse{Content: segmentsJSON()},
			llm.MockResponse{Err: errors.New("quota")},
		)
		_, err := newTestService(mock).AnalyzeAll(context.Background(), []string{"https://youtu.be/aaaaaaaaaaa", "https://youtu.be/bbbbbbbbbbb"}, quiz.English)
		var verr *VideoError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "https://youtu.be/bbbbbbbbbbb", verr.URL)
		assert.Contains(t, err.Error(), "quota")
	})
}

func TestGenerateReport(t *testing.T) {
	history := []quiz.AnswerRecord{
		{VideoIndex: 0, SegmentIndex: 0, Answer: 1, IsCorrect: true, Question: "Q1", CorrectAnswer: "A", UserAnswer: "A"},
		{VideoIndex: 0, SegmentIndex: 1, Answer: 2, IsCorrect: false, Question: "Q2", CorrectAnswer: "B", UserAnswer: "C"},
	}

	t.Run("empty history", func(t *testing.T) {
		_, err := newTestService(llm.NewMockProvider()).GenerateReport(context.Background(), nil, "Maya")
		require.ErrorIs(t, err, ErrNoHistory)
	})

	t.Run("success", func(t *testing.T) {
		mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
			"strengths": ["s1", "s2", "s3"],
			"improvements": ["i1", "i2"],
			"recommendations": ["r1", "r2", "r3"]
		}`)})
		rep, err := newTestService(mock).GenerateReport(context.Background(), history, "Maya")
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2", "s3"}, rep.Strengths)
		assert.Equal(t, []string{"i1", "i2"}, rep.Improvements)
		assert.Len(t, rep.Recommendations, 3)

		req := mock.Calls[0]
		assert.Equal(t, 2048, req.MaxTokens)
		assert.Contains(t, req.Messages[0].Content, "Maya")
		assert.Contains(t, req.Messages[0].Content, "Correct answers: 1 of 2")
		assert.Contains(t, req.Messages[0].Content, `"question":"Q2"`)
	})

	t.Run("missing field", func(t *testing.T) {
		mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"strengths": ["s1"], "improvements": []}`)})
		_, err := newTestService(mock).GenerateReport(context.Background(), history, "Maya")
		var verr *quiz.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "recommendations", verr.Field)
	})
}
