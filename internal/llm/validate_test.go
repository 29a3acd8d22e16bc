package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkpointSchema() *Schema {
	return &Schema{
		Name: "checkpoint",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timestamp": map[string]any{"type": "string"},
				"answers": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"minItems": 4,
					"maxItems": 4,
				},
				"level": map[string]any{"type": "string", "enum": []any{"easy", "hard"}},
			},
			"required": []any{"timestamp", "answers"},
		},
	}
}

func TestConformAcceptsValidJSON(t *testing.T) {
	for _, raw := range []string{
		`{"timestamp":"0:30","answers":["a","b","c","d"],"level":"easy"}`,
		`{"timestamp":"0:30","answers":["a","b","c","d"]}`,
	} {
		out, err := conform(checkpointSchema(), json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.JSONEq(t, raw, string(out))
	}
}

func TestConformStripsCodeFences(t *testing.T) {
	raw := json.RawMessage("```json\n{\"timestamp\":\"1:05\",\"answers\":[\"a\",\"b\",\"c\",\"d\"]}\n```\n")
	out, err := conform(checkpointSchema(), raw)
	require.NoError(t, err)
	assert.Equal(t, `{"timestamp":"1:05","answers":["a","b","c","d"]}`, string(out))

	out, err = conform(nil, json.RawMessage("  ```\n\"plain\"\n```"))
	require.NoError(t, err)
	assert.Equal(t, `"plain"`, string(out))
}

func TestConformReportsFailedLocations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		loc  string
	}{
		{"missing required", `{"answers":["a","b","c","d"]}`, "/"},
		{"too few answers", `{"timestamp":"0:30","answers":["a","b"]}`, "/answers"},
		{"wrong item type", `{"timestamp":"0:30","answers":["a","b","c",4]}`, "/answers/3"},
		{"bad enum", `{"timestamp":"0:30","answers":["a","b","c","d"],"level":"medium"}`, "/level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := conform(checkpointSchema(), json.RawMessage(tt.raw))
			var inv *ErrInvalidResponse
			require.ErrorAs(t, err, &inv)
			assert.Contains(t, inv.Locations, tt.loc)
			assert.Equal(t, tt.raw, string(inv.Content))
		})
	}
}

func TestConformRejectsMalformedOrEmpty(t *testing.T) {
	for _, raw := range []string{`{not json`, ``, "```json\n```"} {
		_, err := conform(checkpointSchema(), json.RawMessage(raw))
		var inv *ErrInvalidResponse
		assert.ErrorAs(t, err, &inv, raw)
	}
}

func TestSchemasWithSameNameDoNotCollide(t *testing.T) {
	strict := &Schema{Name: "shared", Definition: map[string]any{"type": "object", "required": []any{"a"}}}
	loose := &Schema{Name: "shared", Definition: map[string]any{"type": "object"}}

	_, err := conform(strict, json.RawMessage(`{}`))
	assert.Error(t, err)
	_, err = conform(loose, json.RawMessage(`{}`))
	assert.NoError(t, err)
}
