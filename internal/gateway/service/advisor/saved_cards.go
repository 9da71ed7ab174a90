package advisor

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"zentra/internal/apperr"
	"zentra/internal/catalog"
	"zentra/internal/gateway/entity"
	userrepo "zentra/internal/gateway/repository/user"
)

type SavedCardsQuery struct {
	CardID       string
	IncludePlans bool
}

// SavedCard is one saved_card_plans entry as shown to clients.
type SavedCard struct {
	CardID string               `json:"card_id"`
	Card   entity.CardSnapshot  `json:"card"`
	Plan   *entity.GuidancePlan `json:"plan,omitempty"`
	// Reconciled is set when the stored entry had no snapshot and Card was
	// rebuilt from the current catalog.
	Reconciled bool      `json:"reconciled,omitempty"`
	SavedAt    time.Time `json:"saved_at,omitzero"`
}

// SavedCards lists saved cards ordered by card id. Entries written before
// snapshots were stored are completed from the catalog on the way out; the
// stored document is not modified.
func (s *Service) SavedCards(ctx context.Context, userID entity.UserID, q SavedCardsQuery) ([]SavedCard, error) {
	if userID.IsZero() {
		return nil, apperr.Unauthorized("missing user identity")
	}
	rec, err := s.store.Get(ctx, userID)
	if errors.Is(err, userrepo.ErrNotFound) {
		return []SavedCard{}, nil
	}
	if err != nil {
		return nil, apperr.Persistence("could not load saved cards", err)
	}

	var snap *catalog.Snapshot
	needsCatalog := false
	for _, p := range rec.SavedCardPlans {
		if p.Card == nil {
			needsCatalog = true
			break
		}
	}
	if needsCatalog {
		if snap, err = s.catalog.Snapshot(ctx); err != nil {
			return nil, err
		}
	}

	want := strings.TrimSpace(q.CardID)
	ids := make([]string, 0, len(rec.SavedCardPlans))
	for id := range rec.SavedCardPlans {
		if want != "" && id != want {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]SavedCard, 0, len(ids))
	for _, id := range ids {
		entry := rec.SavedCardPlans[id]
		sc := SavedCard{CardID: id, SavedAt: entry.SavedAt}
		if entry.Card != nil {
			sc.Card = *entry.Card
		} else {
			sc.Card, sc.Reconciled = reconcileSnapshot(snap, id)
		}
		if q.IncludePlans {
			plan := entry.Plan
			sc.Plan = &plan
		}
		out = append(out, sc)
	}
	return out, nil
}

// reconcileSnapshot rebuilds a snapshot by card id. A card that left the
// catalog keeps only its id.
func reconcileSnapshot(snap *catalog.Snapshot, cardID string) (entity.CardSnapshot, bool) {
	if c, ok := snap.ByID(cardID); ok {
		return c.Snapshot(), true
	}
	return entity.CardSnapshot{ID: cardID}, true
}
