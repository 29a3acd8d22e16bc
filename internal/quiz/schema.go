package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// analysisSchema is the shape every VideoAnalysis payload must have before
// it reaches the player. It mirrors the contract of the analysis service.
var analysisSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"url": map[string]any{"type": "string"},
		"segments": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"timestamp": map[string]any{"type": "string", "pattern": `^\d+:\d+$`},
					"question":  map[string]any{"type": "string"},
					"answers": map[string]any{
						"type":     "array",
						"minItems": AnswerCount,
						"maxItems": AnswerCount,
						"items":    map[string]any{"type": "string"},
					},
					"correct_index": map[string]any{"type": "integer", "minimum": 0, "maximum": AnswerCount - 1},
					"praise":        map[string]any{"type": "string"},
					"explanation":   map[string]any{"type": "string"},
					"detailed_explanation": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"english":    map[string]any{"type": "string"},
							"translated": map[string]any{"type": "string"},
						},
					},
				},
				"required": []any{"timestamp", "question", "answers", "praise", "explanation"},
			},
		},
	},
	"required": []any{"segments"},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func analysisValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a decoded JSON value rather than Go maps with
		// typed slices, so round-trip through encoding/json.
		raw, err := json.Marshal(analysisSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal analysis schema: %w", err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
		if err != nil {
			compileErr = fmt.Errorf("parse analysis schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://video-analysis.json", doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile("schema://video-analysis.json")
	})
	return compiled, compileErr
}

// ParseAnalysis decodes and validates one VideoAnalysis payload. Missing
// detailed explanations are filled with placeholders and segments are
// ordered by timestamp.
func ParseAnalysis(raw []byte) (*VideoAnalysis, error) {
	sch, err := analysisValidator()
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return nil, &ValidationError{Field: "analysis", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := sch.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, &ValidationError{Field: "analysis", Message: verr.Error()}
		}
		return nil, &ValidationError{Field: "analysis", Message: err.Error()}
	}

	var va VideoAnalysis
	if err := json.Unmarshal(raw, &va); err != nil {
		return nil, &ValidationError{Field: "analysis", Message: err.Error()}
	}
	Normalize(&va)
	return &va, nil
}

// Normalize fills placeholder explanations and sorts segments by
// timestamp. Segments keep their relative order on equal timestamps.
func Normalize(va *VideoAnalysis) {
	for i := range va.Segments {
		d := &va.Segments[i].DetailedExplanation
		if strings.TrimSpace(d.English) == "" {
			d.English = ExplanationUnavailable
		}
		if strings.TrimSpace(d.Translated) == "" {
			d.Translated = TranslationUnavailable
		}
	}
	sort.SliceStable(va.Segments, func(i, j int) bool {
		a, errA := va.Segments[i].At()
		b, errB := va.Segments[j].At()
		if errA != nil || errB != nil {
			return false
		}
		return a < b
	})
}

// ValidateSegment checks the structural invariants of a single segment.
func ValidateSegment(s Segment) error {
	switch {
	case strings.TrimSpace(s.Question) == "":
		return &ValidationError{Field: "question", Message: "missing question"}
	case len(s.Answers) != AnswerCount:
		return &ValidationError{Field: "answers", Message: fmt.Sprintf("answers must be an array of %d items", AnswerCount)}
	case s.CorrectIndex < 0 || s.CorrectIndex >= len(s.Answers):
		return &ValidationError{Field: "correct_index", Message: "correct index out of range"}
	}
	if _, err := ParseTimestamp(s.Timestamp); err != nil {
		return &ValidationError{Field: "timestamp", Message: "invalid timestamp format"}
	}
	return nil
}
