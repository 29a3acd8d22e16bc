package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestGeminiProvider(t *testing.T, resolution string, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewGeminiProvider(context.Background(), GeminiConfig{
		APIKey:          "test-key",
		Model:           "gemini-flash",
		MediaResolution: resolution,
		BaseURL:         server.URL,
	})
	require.NoError(t, err)
	return p
}

func geminiReply(w http.ResponseWriter, text, finish string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
			"finishReason": finish,
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 900, "candidatesTokenCount": 120, "totalTokenCount": 1020},
		"modelVersion":  "gemini-2.0-flash-001",
	})
}

func TestGeminiSendsVideoAsFilePart(t *testing.T) {
	var body map[string]any
	var path string
	p := newTestGeminiProvider(t, "low", func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		geminiReply(w, `{"segments":[]}`, "STOP")
	})

	resp, err := p.Generate(context.Background(), Request{
		System: "You write quiz questions for videos.",
		Messages: []Message{{
			Role:    RoleUser,
			Content: "Make a quiz.",
			Media:   []Media{{URI: "https://youtu.be/4lkq3DgvmJo", MIMEType: "video/*"}},
		}},
		Schema:    &Schema{Name: "gemini-test", Definition: map[string]any{"type": "object"}},
		MaxTokens: 512,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "models/gemini-2.0-flash:generateContent"), path)
	assert.Equal(t, "gemini-2.0-flash-001", resp.Model)
	assert.Equal(t, 900, resp.Usage.InputTokens)
	assert.Equal(t, 1020, resp.Usage.TotalTokens)

	parts := body["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	file := parts[0].(map[string]any)["fileData"].(map[string]any)
	assert.Equal(t, "https://youtu.be/4lkq3DgvmJo", file["fileUri"])
	assert.Equal(t, "Make a quiz.", parts[1].(map[string]any)["text"])

	gen := body["generationConfig"].(map[string]any)
	assert.Equal(t, "MEDIA_RESOLUTION_LOW", gen["mediaResolution"])
	assert.Equal(t, "application/json", gen["responseMimeType"])
}

func TestGeminiFinishReasons(t *testing.T) {
	p := newTestGeminiProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		geminiReply(w, `{"segments":[`, "MAX_TOKENS")
	})
	_, err := p.Generate(context.Background(), Request{MaxTokens: 10})
	var maxTok *ErrMaxTokensExceeded
	assert.ErrorAs(t, err, &maxTok)

	p = newTestGeminiProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		geminiReply(w, "", "SAFETY")
	})
	_, err = p.Generate(context.Background(), Request{MaxTokens: 10})
	var rejected *ErrRejected
	assert.ErrorAs(t, err, &rejected)
}

func TestGeminiBadRequestIsRejected(t *testing.T) {
	p := newTestGeminiProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "Cannot fetch content from the provided URL.", "status": "INVALID_ARGUMENT"},
		})
	})
	_, err := p.Generate(context.Background(), Request{MaxTokens: 10})
	var rejected *ErrRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusBadRequest, rejected.Status)
}

func TestParseMediaResolution(t *testing.T) {
	r, err := parseMediaResolution(" High ")
	require.NoError(t, err)
	assert.Equal(t, genai.MediaResolutionHigh, r)

	r, err = parseMediaResolution("")
	require.NoError(t, err)
	assert.Empty(t, r)

	_, err = parseMediaResolution("ultra")
	assert.Error(t, err)

	_, err = NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "k", MediaResolution: "ultra"})
	assert.Error(t, err)
}

func TestGeminiModelMapping(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", resolveModel("gemini-flash", geminiModels))
	assert.Equal(t, "gemini-2.0-pro", resolveModel("gemini-pro", geminiModels))
	assert.Equal(t, "gemini-2.5-flash", resolveModel("gemini-2.5-flash", geminiModels))
}

func TestBuildGeminiSchemaKeepsFieldOrder(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question":  map[string]any{"type": "string"},
			"timestamp": map[string]any{"type": "string", "description": "MM:SS"},
			"level":     map[string]any{"type": "string", "enum": []any{"easy", "hard"}},
			"answers": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 4,
				"maxItems": 4,
			},
			"notes": map[string]any{"type": "string"},
		},
		"required":             []any{"timestamp", "question", "answers"},
		"additionalProperties": false,
	}

	schema := buildGeminiSchema(def)
	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"timestamp", "question", "answers"}, schema.Required)
	assert.Equal(t, []string{"timestamp", "question", "answers", "level", "notes"}, schema.PropertyOrdering)
	assert.Equal(t, "MM:SS", schema.Properties["timestamp"].Description)
	assert.Equal(t, []string{"easy", "hard"}, schema.Properties["level"].Enum)

	answers := schema.Properties["answers"]
	assert.Equal(t, genai.TypeArray, answers.Type)
	assert.Equal(t, genai.TypeString, answers.Items.Type)
	require.NotNil(t, answers.MinItems)
	assert.EqualValues(t, 4, *answers.MinItems)
	assert.EqualValues(t, 4, *answers.MaxItems)
}

func TestBuildGeminiContentsPutsMediaFirst(t *testing.T) {
	out := buildGeminiContents([]Message{{
		Role:    RoleUser,
		Content: "analyze",
		Media:   []Media{{URI: "https://youtu.be/abc", MIMEType: "video/*"}},
	}, {
		Role:    RoleAssistant,
		Content: "ok",
	}})

	require.Len(t, out, 2)
	require.Len(t, out[0].Parts, 2)
	require.NotNil(t, out[0].Parts[0].FileData)
	assert.Equal(t, "https://youtu.be/abc", out[0].Parts[0].FileData.FileURI)
	assert.Equal(t, "video/*", out[0].Parts[0].FileData.MIMEType)
	assert.Equal(t, "analyze", out[0].Parts[1].Text)
	assert.Equal(t, "model", out[1].Role)
}
