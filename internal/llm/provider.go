// Package llm is the model access layer behind video analysis and
// learning reports. Providers differ in what they can see: Gemini watches
// the video, the others get its URL and thumbnail.
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Provider sends one request to a model and returns its answer. When the
// request carries a Schema the answer has been checked against it.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

type Request struct {
	System   string
	Messages []Message

	// Schema asks for structured output using the provider's native
	// mechanism. Nil means free text.
	Schema *Schema

	MaxTokens int
	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

type Message struct {
	Role    Role
	Content string

	// Media are remote files the model should look at: the video itself
	// and optionally its thumbnail. Providers that cannot fetch a kind of
	// media receive its URI as text.
	Media []Media
}

// Media is a remote file reference.
type Media struct {
	URI      string
	MIMEType string
}

// TextWithMedia appends a line per media URI to the message content.
func (m Message) TextWithMedia() string {
	if len(m.Media) == 0 {
		return m.Content
	}
	var b strings.Builder
	b.WriteString(m.Content)
	for _, md := range m.Media {
		b.WriteString("\n\nAttached ")
		b.WriteString(md.MIMEType)
		b.WriteString(": ")
		b.WriteString(md.URI)
	}
	return b.String()
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a JSON Schema the answer must satisfy.
type Schema struct {
	// Name is a kebab-case identifier such as "video-quiz". OpenAI uses it
	// as the schema name; it also keys the compiled schema cache.
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	// Content is the validated JSON when a Schema was sent, the raw text
	// otherwise.
	Content json.RawMessage
	Usage   Usage
	// Model is the model that actually served the request, which may be
	// more specific than the configured one.
	Model string
	// StopReason is "end" for every successful response. Truncation and
	// refusals surface as errors instead.
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
