package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/store"
)

// LoggingProvider is a decorator that records every LLM request as an event.
type LoggingProvider struct {
	inner     Provider
	name      string
	eventRepo store.EventRepo
	log       zerolog.Logger
}

// WithLogging wraps a Provider with event logging. name is the provider
// family ("gemini", "openai", ...) recorded with each event.
func WithLogging(p Provider, name string, repo store.EventRepo, log zerolog.Logger) Provider {
	return &LoggingProvider{
		inner:     p,
		name:      name,
		eventRepo: repo,
		log:       log.With().Str("component", "llm").Logger(),
	}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	latencyMs := time.Since(start).Milliseconds()

	data := store.LLMRequestEventData{
		Provider:    l.name,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		Attempt:     AttemptFrom(ctx),
		LatencyMs:   latencyMs,
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.Model = resp.Model
		data.ResponseBody = string(resp.Content)
	}

	if err != nil {
		data.ErrorMessage = err.Error()
		data.ResponseBody = rejectedContent(err)
	}

	ev := l.log.Debug()
	if err != nil {
		ev = l.log.Warn().Err(err)
	}
	ev.Str("purpose", purpose).
		Int("attempt", data.Attempt).
		Str("model", data.Model).
		Int64("latency_ms", latencyMs).
		Int("input_tokens", data.InputTokens).
		Int("output_tokens", data.OutputTokens).
		Msg("llm request")

	// Log the event but don't fail the request if logging fails.
	if l.eventRepo == nil {
		return resp, err
	}
	if logErr := l.eventRepo.AppendLLMRequest(ctx, data); logErr != nil {
		l.log.Warn().Err(logErr).Msg("failed to record llm request event")
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// rejectedContent is the model output behind an invalid or truncated
// answer, kept so it can be inspected later.
func rejectedContent(err error) string {
	var invalid *ErrInvalidResponse
	if errors.As(err, &invalid) {
		return string(invalid.Content)
	}
	var truncated *ErrMaxTokensExceeded
	if errors.As(err, &truncated) {
		return string(truncated.Content)
	}
	return ""
}

// serializeRequest renders a request for `vidquiz llm view`. The schema
// body is left out; its name identifies it.
func serializeRequest(req Request) string {
	var b strings.Builder
	block := func(title, body string) {
		fmt.Fprintf(&b, "── %s ──\n%s\n", title, strings.TrimSpace(body))
	}

	if req.System != "" {
		block("system", req.System)
	}
	for _, m := range req.Messages {
		block(string(m.Role), m.Content)
		for _, md := range m.Media {
			fmt.Fprintf(&b, "  + %s %s\n", md.MIMEType, md.URI)
		}
	}
	if req.Schema != nil {
		fmt.Fprintf(&b, "── schema ──\n%s", req.Schema.Name)
		if req.Schema.Description != "" {
			fmt.Fprintf(&b, ": %s", req.Schema.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}
