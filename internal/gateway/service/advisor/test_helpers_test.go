package advisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"zentra/internal/apperr"
	"zentra/internal/catalog"
	"zentra/internal/gateway/entity"
	userrepo "zentra/internal/gateway/repository/user"
	"zentra/internal/llm"
)

const testCatalog = `{"credit_cards": [
  {"id": "chase-sapphire", "name": "Chase Sapphire Preferred", "issuer": "Chase", "card_type": "travel",
   "annual_fee": 95, "apr_range": "21.49% - 28.49%", "image_url": "https://img/csp.png", "rewards_structure": "3x dining"},
  {"id": "discover-it", "name": "Discover it Student", "issuer": "Discover", "card_type": "student",
   "annual_fee": 0, "apr_range": "18.24% - 27.24%", "image_url": "https://img/dis.png", "rewards_structure": "5% rotating"},
  {"id": "citi-double", "name": "Citi Double Cash", "issuer": "Citi", "card_type": "cashback",
   "annual_fee": 0, "apr_range": "19.24% - 29.24%", "image_url": "https://img/citi.png", "rewards_structure": "2% everything"}
]}`

type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	delay   time.Duration
	prompts []string
	phases  []string
}

func (s *scriptedLLM) Name() string { return "scripted" }
func (s *scriptedLLM) Close() error { return nil }

func (s *scriptedLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, req.Prompt)
	s.phases = append(s.phases, llm.PhaseFrom(ctx))
	var reply string
	if len(s.replies) > 0 {
		reply = s.replies[0]
		s.replies = s.replies[1:]
	}
	err, delay := s.err, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return reply, err
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// failingWrites accepts reads but rejects generated-result writes.
type failingWrites struct {
	*userrepo.MemoryStore
}

func (f failingWrites) SetRecommendations(context.Context, entity.UserID, []entity.CardRecommendation) error {
	return errors.New("store offline")
}

func (f failingWrites) SetCardPlan(context.Context, entity.UserID, string, entity.SavedCardPlan) error {
	return errors.New("store offline")
}

// fixedDoc serves one prepared document, e.g. with entries written before
// card snapshots existed.
type fixedDoc struct {
	*userrepo.MemoryStore
	rec entity.UserRecord
}

func (f fixedDoc) Get(context.Context, entity.UserID) (entity.UserRecord, error) {
	return f.rec, nil
}

type fixture struct {
	svc   *Service
	store userrepo.Store
	llm   *scriptedLLM
}

func newFixture(t *testing.T, store userrepo.Store, replies ...string) *fixture {
	t.Helper()
	if store == nil {
		store = userrepo.NewMemoryStore()
	}
	stub := &scriptedLLM{replies: replies}
	svc, err := New(Options{
		Store:   store,
		Catalog: catalog.New(catalog.BytesSource{Label: "test", Data: []byte(testCatalog)}),
		LLM:     stub,
		Timeout: time.Second,
		Now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{svc: svc, store: store, llm: stub}
}

func submitSampleAnswers(t *testing.T, f *fixture, userID entity.UserID) {
	t.Helper()
	answers := entity.AnswersFromMap(map[string]any{"goal": "travel", "income": "60k", "spend": "dining"})
	if _, err := f.svc.SubmitAnswers(context.Background(), userID, answers, nil); err != nil {
		t.Fatalf("SubmitAnswers() error = %v", err)
	}
}

func wantCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want %s", code)
	}
	if got := apperr.CodeOf(err); got != code {
		t.Fatalf("error code = %s, want %s (err: %v)", got, code, err)
	}
}

const validRecs = `[
 {"name": "Chase Sapphire Preferred", "imageUrl": "https://img/csp.png", "interestRate": "21.49% - 28.49%",
  "description": "Great for travel.", "bullets": ["3x dining", "Transfer partners", "No FX fees", "Trip insurance"]},
 {"name": "Citi Double Cash", "imageUrl": "https://img/citi.png", "interestRate": "19.24% - 29.24%",
  "description": "Flat cash back.", "bullets": ["2% everywhere", "No annual fee", "Simple", "Balance transfer"]},
 {"name": "Discover it Student", "imageUrl": "https://img/dis.png", "interestRate": "18.24% - 27.24%",
  "description": "Builds credit.", "bullets": ["5% rotating", "Cashback match", "No annual fee", "Free FICO"]}
]`

func planReply(name string, fee string) string {
	return `{"name": "` + name + `", "issuer": "Chase", "category": "travel", "annualFee": ` + fee + `,
 "rewardRate": "3x dining", "keyFeatures": ["a", "b", "c", "d", "e"], "spendingTip": "Dining.",
 "upgradePathTip": "Reserve later.", "monthlyOptimizationTip": "Autopay.", "extraTips": ["x", "y", "z"]}`
}
