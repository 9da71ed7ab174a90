// Package advisor runs the card recommendation pipeline: it assembles the
// user's context, prompts the model under a strict output contract,
// validates the reply and persists the accepted result.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"zentra/internal/apperr"
	"zentra/internal/catalog"
	"zentra/internal/gateway/entity"
	userrepo "zentra/internal/gateway/repository/user"
	"zentra/internal/llm"
	"zentra/internal/logging"
)

const DefaultTimeout = 45 * time.Second

// CatalogReader serves the current catalog snapshot.
type CatalogReader interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type Options struct {
	Store   userrepo.Store
	Catalog CatalogReader
	LLM     llm.LLMClient
	// Timeout bounds each model call. Zero means DefaultTimeout.
	Timeout time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

type Service struct {
	store   userrepo.Store
	catalog CatalogReader
	llm     llm.LLMClient
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("advisor: store is required")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("advisor: catalog is required")
	}
	if opts.LLM == nil {
		return nil, fmt.Errorf("advisor: llm client is required")
	}
	s := &Service{
		store:   opts.Store,
		catalog: opts.Catalog,
		llm:     opts.LLM,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// UpsertResult reports a field-level upsert of the user document.
type UpsertResult struct {
	UserID   entity.UserID
	Upserted bool
}

// SubmitAnswers stores the survey answers. Repeating the same submission
// leaves the document unchanged.
func (s *Service) SubmitAnswers(ctx context.Context, userID entity.UserID, answers entity.Answers, metadata map[string]any) (UpsertResult, error) {
	if userID.IsZero() {
		return UpsertResult{}, apperr.Unauthorized("missing user identity")
	}
	if answers.Kind() == entity.AnswersNone {
		return UpsertResult{}, apperr.InvalidArgument("answers must be an object or an array of strings")
	}
	created, err := s.store.UpsertAnswers(ctx, userID, answers, metadata)
	if err != nil {
		s.logger.ErrorContext(ctx, "save answers failed", "user_id", userID.String(), "error", err)
		return UpsertResult{}, apperr.Persistence("could not save answers", err)
	}
	return UpsertResult{UserID: userID, Upserted: created}, nil
}

// Onboard merges profile fields into the user document.
func (s *Service) Onboard(ctx context.Context, userID entity.UserID, update entity.ProfileUpdate) (UpsertResult, error) {
	if userID.IsZero() {
		return UpsertResult{}, apperr.Unauthorized("missing user identity")
	}
	if len(update.Fields()) == 0 {
		return UpsertResult{}, apperr.InvalidArgument("no profile fields supplied")
	}
	created, err := s.store.UpsertProfile(ctx, userID, update)
	if err != nil {
		s.logger.ErrorContext(ctx, "onboard failed", "user_id", userID.String(), "error", err)
		return UpsertResult{}, apperr.Persistence("could not save profile", err)
	}
	return UpsertResult{UserID: userID, Upserted: created}, nil
}

type Profile struct {
	UserID      entity.UserID  `json:"user_id"`
	Email       string         `json:"email"`
	Role        string         `json:"role,omitempty"`
	FirstName   string         `json:"first_name,omitempty"`
	LastName    string         `json:"last_name,omitempty"`
	Profile     map[string]any `json:"profile"`
	HasAnswers  bool           `json:"has_answers"`
	SavedCards  int            `json:"saved_cards"`
	Recommended int            `json:"recommended"`
}

// Profile combines token claims with the stored document. A user without a
// document gets an empty profile.
func (s *Service) Profile(ctx context.Context, ident entity.Identity) (Profile, error) {
	if ident.UserID.IsZero() {
		return Profile{}, apperr.Unauthorized("missing user identity")
	}
	rec, err := s.store.Get(ctx, ident.UserID)
	if err != nil && !errors.Is(err, userrepo.ErrNotFound) {
		return Profile{}, apperr.Persistence("could not load profile", err)
	}
	p := Profile{
		UserID:      ident.UserID,
		Email:       ident.Email,
		Role:        ident.Role,
		FirstName:   rec.FirstName,
		LastName:    rec.LastName,
		Profile:     rec.Profile,
		HasAnswers:  rec.HasAnswers(),
		SavedCards:  len(rec.SavedCardPlans),
		Recommended: len(rec.Recommendations),
	}
	if p.Email == "" {
		p.Email = rec.Email
	}
	if p.Profile == nil {
		p.Profile = map[string]any{}
	}
	return p, nil
}

// Recommend generates and stores the top three cards for the user.
func (s *Service) Recommend(ctx context.Context, userID entity.UserID) ([]entity.CardRecommendation, error) {
	r := s.startRun(TaskRecommend, userID)
	if userID.IsZero() {
		return nil, r.fail(ctx, apperr.Unauthorized("missing user identity"))
	}
	b, err := s.assemble(ctx, userID, TaskRecommend)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.advance(StageContextAssembled)

	prompt, err := buildPrompt(TaskRecommend, b, promptExtra{})
	if err != nil {
		return nil, r.fail(ctx, apperr.Wrap(err, apperr.CodeInternal, "could not build prompt"))
	}
	r.advance(StagePromptBuilt)

	text, err := s.complete(ctx, TaskRecommend, prompt)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.advance(StageCompletionReceived)

	recs, err := parseRecommendations(text)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.advance(StageValidated)

	if err := s.store.SetRecommendations(ctx, userID, recs); err != nil {
		r.persistFailed(ctx, err)
	} else {
		r.advance(StagePersisted)
	}
	r.succeed(ctx)
	return recs, nil
}

// SaveCardRequest selects a catalog card by id, or by name when no id is
// given.
type SaveCardRequest struct {
	CardID string
	Name   string
}

type SaveCardResult struct {
	SavedCard entity.CardSnapshot
	Plan      entity.GuidancePlan
}

// SaveCard generates a usage plan for one catalog card and stores it under
// saved_card_plans[card id] together with a snapshot of the card.
func (s *Service) SaveCard(ctx context.Context, userID entity.UserID, req SaveCardRequest) (SaveCardResult, error) {
	r := s.startRun(TaskPlan, userID)
	if userID.IsZero() {
		return SaveCardResult{}, r.fail(ctx, apperr.Unauthorized("missing user identity"))
	}
	req.CardID = strings.TrimSpace(req.CardID)
	req.Name = strings.TrimSpace(req.Name)
	if req.CardID == "" && req.Name == "" {
		return SaveCardResult{}, r.fail(ctx, apperr.InvalidArgument("card_id or name is required"))
	}
	b, err := s.assemble(ctx, userID, TaskPlan)
	if err != nil {
		return SaveCardResult{}, r.fail(ctx, err)
	}
	card, err := resolveCard(b.Catalog, req)
	if err != nil {
		return SaveCardResult{}, r.fail(ctx, err)
	}
	r.advance(StageContextAssembled)

	prompt, err := buildPrompt(TaskPlan, b, promptExtra{Card: &card})
	if err != nil {
		return SaveCardResult{}, r.fail(ctx, apperr.Wrap(err, apperr.CodeInternal, "could not build prompt"))
	}
	r.advance(StagePromptBuilt)

	text, err := s.complete(ctx, TaskPlan, prompt)
	if err != nil {
		return SaveCardResult{}, r.fail(ctx, err)
	}
	r.advance(StageCompletionReceived)

	plan, err := parsePlan(text)
	if err != nil {
		return SaveCardResult{}, r.fail(ctx, err)
	}
	r.advance(StageValidated)

	snap := card.Snapshot()
	entry := entity.SavedCardPlan{Card: &snap, Plan: plan, SavedAt: s.now().UTC()}
	if err := s.store.SetCardPlan(ctx, userID, card.ID, entry); err != nil {
		r.persistFailed(ctx, err)
	} else {
		r.advance(StagePersisted)
	}
	r.succeed(ctx)
	return SaveCardResult{SavedCard: snap, Plan: plan}, nil
}

func resolveCard(snap *catalog.Snapshot, req SaveCardRequest) (entity.Card, error) {
	if req.CardID != "" {
		if c, ok := snap.ByID(req.CardID); ok {
			return c, nil
		}
	}
	if req.Name != "" {
		if c, ok := snap.ByName(req.Name); ok {
			return c, nil
		}
	}
	ref := req.CardID
	if ref == "" {
		ref = req.Name
	}
	return entity.Card{}, apperr.NotFound(fmt.Sprintf("card %q not found in catalog", ref))
}

// Chat answers a free-text question with the user's history as context.
// Nothing is persisted.
func (s *Service) Chat(ctx context.Context, userID entity.UserID, message string) (string, error) {
	r := s.startRun(TaskChat, userID)
	if userID.IsZero() {
		return "", r.fail(ctx, apperr.Unauthorized("missing user identity"))
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", r.fail(ctx, apperr.InvalidArgument("message is required"))
	}
	if utf8.RuneCountInString(message) > MaxChatMessageLen {
		return "", r.fail(ctx, apperr.InvalidArgument(fmt.Sprintf("message exceeds %d characters", MaxChatMessageLen)))
	}
	b, err := s.assemble(ctx, userID, TaskChat)
	if err != nil {
		return "", r.fail(ctx, err)
	}
	r.advance(StageContextAssembled)

	prompt, err := buildPrompt(TaskChat, b, promptExtra{Message: message})
	if err != nil {
		return "", r.fail(ctx, apperr.Wrap(err, apperr.CodeInternal, "could not build prompt"))
	}
	r.advance(StagePromptBuilt)

	text, err := s.complete(ctx, TaskChat, prompt)
	if err != nil {
		return "", r.fail(ctx, err)
	}
	r.advance(StageCompletionReceived)

	reply, err := parseChat(text)
	if err != nil {
		return "", r.fail(ctx, err)
	}
	r.advance(StageValidated)
	r.succeed(ctx)
	return reply, nil
}
