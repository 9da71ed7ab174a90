package advisor

import (
	"context"
	"log/slog"
	"time"

	"zentra/internal/apperr"
	"zentra/internal/gateway/entity"
)

// Stage is a step of one generation request. Stages only move forward;
// any of them may end in failure.
type Stage string

const (
	StageStart              Stage = "start"
	StageContextAssembled   Stage = "context_assembled"
	StagePromptBuilt        Stage = "prompt_built"
	StageCompletionReceived Stage = "completion_received"
	StageValidated          Stage = "validated"
	StagePersisted          Stage = "persisted"
	StageSuccess            Stage = "success"
)

type run struct {
	logger  *slog.Logger
	task    Task
	userID  entity.UserID
	stage   Stage
	started time.Time
}

func (s *Service) startRun(task Task, userID entity.UserID) *run {
	return &run{
		logger:  s.logger,
		task:    task,
		userID:  userID,
		stage:   StageStart,
		started: time.Now(),
	}
}

func (r *run) advance(stage Stage) { r.stage = stage }

// fail logs the failure with the last stage reached and returns err.
func (r *run) fail(ctx context.Context, err error) error {
	code := apperr.CodeOf(err)
	level := slog.LevelError
	if code == apperr.CodeNotFound || code == apperr.CodeInvalidArgument {
		level = slog.LevelInfo
	}
	attrs := []any{
		"user_id", r.userID.String(),
		"task", string(r.task),
		"stage", string(r.stage),
		"error_code", string(code),
		"error", err,
		"duration_ms", time.Since(r.started).Milliseconds(),
	}
	if e, ok := apperr.As(err); ok && len(e.Context) > 0 {
		attrs = append(attrs, "detail", e.Context)
	}
	r.logger.Log(ctx, level, "advisor request failed", attrs...)
	return err
}

// persistFailed records a write error after a successful generation; the
// caller still returns the generated value.
func (r *run) persistFailed(ctx context.Context, err error) {
	r.logger.WarnContext(ctx, "advisor result not persisted",
		"user_id", r.userID.String(),
		"task", string(r.task),
		"stage", string(r.stage),
		"error_code", string(apperr.CodePersistence),
		"error", err,
	)
}

func (r *run) succeed(ctx context.Context) {
	persisted := r.stage == StagePersisted
	r.stage = StageSuccess
	r.logger.InfoContext(ctx, "advisor request completed",
		"user_id", r.userID.String(),
		"task", string(r.task),
		"persisted", persisted,
		"duration_ms", time.Since(r.started).Milliseconds(),
	)
}
