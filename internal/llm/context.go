package llm

import "context"

// Purposes recorded with every request event.
const (
	PurposeVideoAnalysis = "video-analysis"
	PurposeReport        = "report"
)

type ctxKey int

const (
	purposeKey ctxKey = iota
	attemptKey
)

// WithPurpose labels the requests made with ctx, e.g. PurposeVideoAnalysis.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

func withAttempt(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, attemptKey, n)
}

// AttemptFrom returns the 1-based attempt number the retry decorator is
// on. Calls made outside WithRetry report 1.
func AttemptFrom(ctx context.Context) int {
	if v, ok := ctx.Value(attemptKey).(int); ok && v > 0 {
		return v
	}
	return 1
}
