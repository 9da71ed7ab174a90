package llm

import (
	"context"
	"errors"

	"zentra/internal/llmtool"
)

// Mode tells the completion service what kind of text to produce.
type Mode string

const (
	ModeFreeText       Mode = "free_text"
	ModeStructuredJSON Mode = "structured_json"
)

// ErrEmptyResponse is returned when the service answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// ErrRateLimitWait is returned when a call cannot get a rate-limit token
// before its context ends, including when the limiter predicts the wait
// would outlast the deadline.
var ErrRateLimitWait = errors.New("llm: rate limit wait exceeds deadline")

// Request is one completion call.
type Request struct {
	Prompt string
	Mode   Mode
	// Schema, when set in structured mode, is forwarded to providers that
	// can constrain their output. It is a hint; callers still validate.
	Schema *llmtool.Schema
}

type LLMClient interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
	Close() error
}

type ctxKeyPhase struct{}

// WithPhase tags ctx with the task being run, for logs and the fake client.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyPhase{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}
