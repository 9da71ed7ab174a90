package advisor

import (
	"context"
	"errors"
	"strings"

	"zentra/internal/apperr"
	"zentra/internal/llm"
)

// complete makes the single model call of a request, bounded by the
// service timeout.
func (s *Service) complete(ctx context.Context, task Task, prompt string) (string, error) {
	cctx, cancel := context.WithTimeout(llm.WithPhase(ctx, string(task)), s.timeout)
	defer cancel()

	text, err := s.llm.Complete(cctx, llm.Request{
		Prompt: prompt,
		Mode:   task.mode(),
		Schema: task.schema(),
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, llm.ErrRateLimitWait),
			errors.Is(cctx.Err(), context.DeadlineExceeded):
			return "", apperr.Wrap(err, apperr.CodeUpstreamTimeout, "the recommendation service timed out")
		case errors.Is(err, llm.ErrEmptyResponse):
			return "", apperr.Wrap(err, apperr.CodeUpstreamEmpty, "the recommendation service returned no content")
		default:
			return "", apperr.Wrap(err, apperr.CodeUpstreamUnavailable, "the recommendation service is unavailable")
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.New(apperr.CodeUpstreamEmpty, "the recommendation service returned no content")
	}
	return text, nil
}
