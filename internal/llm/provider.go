package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Config selects and tunes the completion backend.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	RPS      float64
	Burst    int
}

// New builds the configured client wrapped in the standard middleware
// stack: logging outermost, then rate limiting.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (LLMClient, error) {
	var inner LLMClient
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "gemini":
		g, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		inner = g
	case "fake":
		inner = NewFakeClient()
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	return Wrap(inner, WithLogging(logger), RateLimit(cfg.RPS, cfg.Burst)), nil
}
