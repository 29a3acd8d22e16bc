package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// LLMRequestEvent is one attempt at a model call. Retries of the same
// call are separate rows with increasing attempt numbers.
type LLMRequestEvent struct {
	ent.Schema
}

func (LLMRequestEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (LLMRequestEvent) Fields() []ent.Field {
	return []ent.Field{
		field.Enum("provider").
			Values("gemini", "openai", "anthropic", "openrouter", "mock"),
		field.String("model").
			Comment("Model that served the call, as reported by the provider"),
		field.String("purpose").
			Comment("video-analysis or report"),
		field.Int("attempt").
			Positive().
			Default(1),
		field.Int("input_tokens").Default(0),
		field.Int("output_tokens").Default(0),
		field.Int64("latency_ms").Default(0),
		field.Bool("success"),
		field.String("error_message").
			Default("").
			Comment("Error kind and provider message for failed calls"),
		field.Text("request_body").
			Default("").
			Comment("System prompt, messages and media URIs"),
		field.Text("response_body").
			Default("").
			Comment("Model output, kept for rejected answers too"),
	}
}

func (LLMRequestEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("purpose"),
		index.Fields("success", "sequence"),
	}
}
