package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (rate limiting, logging, etc.).
type Middleware func(LLMClient) LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner LLMClient, mws ...Middleware) LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit limits request rate with a token bucket. If rps <= 0 the
// middleware is a pass-through.
func RateLimit(rps float64, burst int) Middleware {
	return func(next LLMClient) LLMClient {
		if rps <= 0 {
			return next
		}
		if burst <= 0 {
			burst = 1
		}
		return &rateLimited{next: next, rl: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next LLMClient
	rl   *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }
func (c *rateLimited) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRateLimitWait, err)
	}
	return c.next.Complete(ctx, req)
}

// -------- Logging --------

// WithLogging logs request size, latency and errors per call.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next LLMClient) LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next LLMClient
	log  *slog.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := l.next.Complete(ctx, req)
	attrs := []any{
		"model", l.next.Name(),
		"phase", PhaseFrom(ctx),
		"mode", string(req.Mode),
		"prompt_bytes", len(req.Prompt),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		l.log.WarnContext(ctx, "llm request failed", append(attrs, "error", err)...)
		return out, err
	}
	l.log.DebugContext(ctx, "llm request", append(attrs, "response_bytes", len(out))...)
	return out, nil
}
