package advisor

import (
	"context"
	"errors"
	"sort"

	"zentra/internal/apperr"
	"zentra/internal/catalog"
	"zentra/internal/gateway/entity"
	userrepo "zentra/internal/gateway/repository/user"
)

// Bundle is everything a prompt may draw on for one user. Slices are never
// nil so rendered prompts do not flip between null and [].
type Bundle struct {
	UserID          entity.UserID
	Email           string
	FirstName       string
	LastName        string
	Profile         map[string]any
	Answers         entity.Answers
	AnswersMetadata map[string]any
	Recommendations []entity.CardRecommendation
	SavedPlans      []SavedPlan
	Catalog         *catalog.Snapshot
}

// SavedPlan is one saved_card_plans entry with its key.
type SavedPlan struct {
	CardID string               `json:"card_id"`
	Card   *entity.CardSnapshot `json:"card,omitempty"`
	Plan   entity.GuidancePlan  `json:"plan"`
}

// assemble loads the catalog and the user's document. Only the
// recommendation task requires stored answers; the other tasks run on
// whatever history exists.
func (s *Service) assemble(ctx context.Context, userID entity.UserID, task Task) (*Bundle, error) {
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, userID)
	if err != nil && !errors.Is(err, userrepo.ErrNotFound) {
		return nil, apperr.Persistence("load user document", err)
	}
	if task == TaskRecommend && !rec.HasAnswers() {
		return nil, apperr.NotFound("no survey answers found for user; submit answers first")
	}

	b := &Bundle{
		UserID:          userID,
		Email:           rec.Email,
		FirstName:       rec.FirstName,
		LastName:        rec.LastName,
		Profile:         rec.Profile,
		Answers:         rec.Answers,
		AnswersMetadata: rec.AnswersMetadata,
		Recommendations: rec.Recommendations,
		Catalog:         snap,
	}
	if b.Profile == nil {
		b.Profile = map[string]any{}
	}
	if b.AnswersMetadata == nil {
		b.AnswersMetadata = map[string]any{}
	}
	if b.Recommendations == nil {
		b.Recommendations = []entity.CardRecommendation{}
	}
	b.SavedPlans = sortedPlans(rec.SavedCardPlans, maxChatPlans)
	return b, nil
}

func sortedPlans(plans map[string]entity.SavedCardPlan, limit int) []SavedPlan {
	ids := make([]string, 0, len(plans))
	for id := range plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]SavedPlan, 0, len(ids))
	for _, id := range ids {
		p := plans[id]
		out = append(out, SavedPlan{CardID: id, Card: p.Card, Plan: p.Plan})
	}
	return out
}
