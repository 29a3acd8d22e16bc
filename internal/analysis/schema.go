package analysis

import "github.com/abhisek/vidquiz/internal/llm"

// SegmentsSchema is the structured output requested from the model. The
// first answer is always the correct one; positions are shuffled after
// generation.
var SegmentsSchema = &llm.Schema{
	Name:        "video-quiz",
	Description: "Timed quiz checkpoints for one educational video",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"segments": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"timestamp": map[string]any{
							"type":        "string",
							"description": "MM:SS position where the video stops",
						},
						"content_covered": map[string]any{
							"type":        "string",
							"description": "Brief summary of what was explained before the stop",
						},
						"question": map[string]any{
							"type":        "string",
							"description": "Question about the content just covered",
						},
						"answers": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Exactly four answers, the correct one first",
						},
						"praise": map[string]any{
							"type":        "string",
							"description": "Encouraging message for a correct answer",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Short child-friendly explanation for a wrong answer",
						},
						"detailed_explanation": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"english":    map[string]any{"type": "string"},
								"translated": map[string]any{"type": "string"},
							},
							"required":             []any{"english", "translated"},
							"additionalProperties": false,
						},
					},
					"required":             []any{"timestamp", "content_covered", "question", "answers", "praise", "explanation", "detailed_explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"segments"},
		"additionalProperties": false,
	},
}

// ReportSchema is the structured output for performance reports.
var ReportSchema = &llm.Schema{
	Name:        "learning-report",
	Description: "Parent-friendly summary of a learner's quiz answers",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"strengths": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "3-4 concepts the learner understood well",
			},
			"improvements": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "2-3 concepts that need more practice, framed positively",
			},
			"recommendations": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "3-4 activities for parents to reinforce learning",
			},
		},
		"required":             []any{"strengths", "improvements", "recommendations"},
		"additionalProperties": false,
	},
}
