package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"zentra/internal/apperr"
	"zentra/internal/gateway/entity"
	userrepo "zentra/internal/gateway/repository/user"
	"zentra/internal/llm"
)

func TestRecommendWithoutAnswersIsNotFound(t *testing.T) {
	f := newFixture(t, nil, validRecs)
	_, err := f.svc.Recommend(context.Background(), "u1")
	wantCode(t, err, apperr.CodeNotFound)
	if f.llm.calls() != 0 {
		t.Fatalf("model calls = %d, want 0", f.llm.calls())
	}
}

func TestRecommendHappyPath(t *testing.T) {
	f := newFixture(t, nil, "Here you go:\n```json\n"+validRecs+"\n```")
	submitSampleAnswers(t, f, "u1")

	recs, err := f.svc.Recommend(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len(recs) = %d, want 3", len(recs))
	}
	for i, r := range recs {
		if r.Name == "" || r.Description == "" || len(r.Bullets) != 4 {
			t.Fatalf("recs[%d] = %+v", i, r)
		}
	}
	if f.llm.phases[0] != string(TaskRecommend) {
		t.Fatalf("phase = %q", f.llm.phases[0])
	}

	rec, err := f.store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rec.Recommendations) != 3 || rec.Recommendations[0].Name != "Chase Sapphire Preferred" {
		t.Fatalf("stored recommendations = %+v", rec.Recommendations)
	}
}

func TestRecommendTwoItemsIsSchemaViolation(t *testing.T) {
	two := `[{"name":"A","imageUrl":"","interestRate":"1%","description":"d","bullets":["1","2","3","4"]},
	         {"name":"B","imageUrl":"","interestRate":"1%","description":"d","bullets":["1","2","3","4"]}]`
	f := newFixture(t, nil, two)
	submitSampleAnswers(t, f, "u1")

	_, err := f.svc.Recommend(context.Background(), "u1")
	wantCode(t, err, apperr.CodeSchemaViolation)

	rec, _ := f.store.Get(context.Background(), "u1")
	if len(rec.Recommendations) != 0 {
		t.Fatalf("recommendations persisted after violation: %+v", rec.Recommendations)
	}
}

func TestRecommendViolationKeepsPreviousSet(t *testing.T) {
	one := `[{"name":"A","imageUrl":"","interestRate":"1%","description":"d","bullets":["1","2","3","4"]}]`
	f := newFixture(t, nil, validRecs, one)
	submitSampleAnswers(t, f, "u1")
	ctx := context.Background()

	if _, err := f.svc.Recommend(ctx, "u1"); err != nil {
		t.Fatalf("first Recommend() error = %v", err)
	}
	_, err := f.svc.Recommend(ctx, "u1")
	wantCode(t, err, apperr.CodeSchemaViolation)

	rec, err := f.store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rec.Recommendations) != 3 || rec.Recommendations[0].Name != "Chase Sapphire Preferred" {
		t.Fatalf("stored recommendations = %+v, want the first set", rec.Recommendations)
	}
}

func TestRecommendViolationNamesField(t *testing.T) {
	bad := strings.Replace(validRecs, `"bullets": ["2% everywhere", "No annual fee", "Simple", "Balance transfer"]`, `"bullets": ["2% everywhere"]`, 1)
	f := newFixture(t, nil, bad)
	submitSampleAnswers(t, f, "u1")

	_, err := f.svc.Recommend(context.Background(), "u1")
	wantCode(t, err, apperr.CodeSchemaViolation)
	if !strings.Contains(apperr.PublicMessage(err), "recommendations[1].bullets") {
		t.Fatalf("message = %q", apperr.PublicMessage(err))
	}
}

func TestRecommendAcceptsQuotedPayload(t *testing.T) {
	quoted, err := json.Marshal(validRecs)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	f := newFixture(t, nil, string(quoted))
	submitSampleAnswers(t, f, "u1")

	recs, err := f.svc.Recommend(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 3 || recs[2].Name != "Discover it Student" {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestRecommendRepairsDoubleEscapedText(t *testing.T) {
	reply := strings.Replace(validRecs, `"Great for travel."`, `"Dining \\u0026 travel."`, 1)
	f := newFixture(t, nil, reply)
	submitSampleAnswers(t, f, "u1")

	recs, err := f.svc.Recommend(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if recs[0].Description != "Dining & travel." {
		t.Fatalf("description = %q", recs[0].Description)
	}
}

func TestRecommendMalformedResponse(t *testing.T) {
	f := newFixture(t, nil, "I would suggest the Sapphire card.")
	submitSampleAnswers(t, f, "u1")
	_, err := f.svc.Recommend(context.Background(), "u1")
	wantCode(t, err, apperr.CodeMalformedResponse)
}

func TestRecommendUpstreamFailures(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*scriptedLLM)
		want  apperr.Code
	}{
		{"unavailable", func(s *scriptedLLM) { s.err = errors.New("connection refused") }, apperr.CodeUpstreamUnavailable},
		{"empty text", func(s *scriptedLLM) { s.replies = []string{"  \n "} }, apperr.CodeUpstreamEmpty},
		{"empty candidates", func(s *scriptedLLM) { s.err = llm.ErrEmptyResponse }, apperr.CodeUpstreamEmpty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			submitSampleAnswers(t, f, "u1")
			tc.setup(f.llm)
			_, err := f.svc.Recommend(context.Background(), "u1")
			wantCode(t, err, tc.want)
		})
	}
}

func TestRecommendTimeout(t *testing.T) {
	f := newFixture(t, nil, validRecs)
	f.svc.timeout = 20 * time.Millisecond
	f.llm.delay = 2 * time.Second
	submitSampleAnswers(t, f, "u1")

	start := time.Now()
	_, err := f.svc.Recommend(context.Background(), "u1")
	wantCode(t, err, apperr.CodeUpstreamTimeout)
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not enforced, took %s", time.Since(start))
	}
}

func TestRecommendRateLimitWaitIsTimeout(t *testing.T) {
	f := newFixture(t, nil, validRecs, validRecs)
	f.svc.llm = llm.Wrap(f.llm, llm.RateLimit(0.001, 1))
	f.svc.timeout = 50 * time.Millisecond
	submitSampleAnswers(t, f, "u1")
	ctx := context.Background()

	if _, err := f.svc.Recommend(ctx, "u1"); err != nil {
		t.Fatalf("first Recommend() error = %v", err)
	}
	start := time.Now()
	_, err := f.svc.Recommend(ctx, "u1")
	wantCode(t, err, apperr.CodeUpstreamTimeout)
	if time.Since(start) > time.Second {
		t.Fatalf("limiter blocked for %s", time.Since(start))
	}
	if f.llm.calls() != 1 {
		t.Fatalf("model calls = %d, want 1", f.llm.calls())
	}
}

func TestPersistenceFailureStillReturnsResult(t *testing.T) {
	store := failingWrites{MemoryStore: userrepo.NewMemoryStore()}
	f := newFixture(t, store, validRecs, planReply("Chase Sapphire Preferred", "95"))
	submitSampleAnswers(t, f, "u1")

	recs, err := f.svc.Recommend(context.Background(), "u1")
	if err != nil || len(recs) != 3 {
		t.Fatalf("Recommend() = %d recs, err %v", len(recs), err)
	}
	res, err := f.svc.SaveCard(context.Background(), "u1", SaveCardRequest{CardID: "chase-sapphire"})
	if err != nil {
		t.Fatalf("SaveCard() error = %v", err)
	}
	if res.Plan.Name != "Chase Sapphire Preferred" {
		t.Fatalf("plan = %+v", res.Plan)
	}
}

func TestSaveCardUnknownCard(t *testing.T) {
	f := newFixture(t, nil, planReply("X", "0"))
	_, err := f.svc.SaveCard(context.Background(), "u1", SaveCardRequest{CardID: "visa-123"})
	wantCode(t, err, apperr.CodeNotFound)
	if f.llm.calls() != 0 {
		t.Fatalf("model calls = %d, want 0", f.llm.calls())
	}
	if _, err := f.store.Get(context.Background(), "u1"); !errors.Is(err, userrepo.ErrNotFound) {
		t.Fatalf("document written for unknown card: %v", err)
	}
}

func TestSaveCardNeedsReference(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.SaveCard(context.Background(), "u1", SaveCardRequest{})
	wantCode(t, err, apperr.CodeInvalidArgument)
}

func TestSaveCardWithoutAnswersAndByName(t *testing.T) {
	f := newFixture(t, nil, planReply("Discover it Student", `"$1,000"`))
	res, err := f.svc.SaveCard(context.Background(), "u1", SaveCardRequest{Name: "  discover IT student "})
	if err != nil {
		t.Fatalf("SaveCard() error = %v", err)
	}
	if res.SavedCard.ID != "discover-it" {
		t.Fatalf("saved card = %+v", res.SavedCard)
	}
	if res.Plan.AnnualFee != 1000 {
		t.Fatalf("annualFee = %v, want 1000", res.Plan.AnnualFee)
	}
	if len(res.Plan.KeyFeatures) != 5 || len(res.Plan.ExtraTips) != 3 {
		t.Fatalf("plan lists = %d/%d", len(res.Plan.KeyFeatures), len(res.Plan.ExtraTips))
	}
}

func TestSaveCardPlanShapeViolations(t *testing.T) {
	good := planReply("Chase Sapphire Preferred", "95")
	cases := []struct {
		name  string
		reply string
		field string
	}{
		{"four key features", strings.Replace(good, `["a", "b", "c", "d", "e"]`, `["a", "b", "c", "d"]`, 1), "keyFeatures"},
		{"six key features", strings.Replace(good, `["a", "b", "c", "d", "e"]`, `["a", "b", "c", "d", "e", "f"]`, 1), "keyFeatures"},
		{"two extra tips", strings.Replace(good, `["x", "y", "z"]`, `["x", "y"]`, 1), "extraTips"},
		{"missing spending tip", strings.Replace(good, `"spendingTip": "Dining.",`, ``, 1), "spendingTip"},
		{"missing issuer", strings.Replace(good, `"issuer": "Chase",`, ``, 1), "issuer"},
		{"fee not numeric", strings.Replace(good, `"annualFee": 95`, `"annualFee": "free-ish"`, 1), "annualFee"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.reply == good {
				t.Fatalf("reply unchanged; fixture drifted")
			}
			f := newFixture(t, nil, tc.reply)
			_, err := f.svc.SaveCard(context.Background(), "u1", SaveCardRequest{CardID: "chase-sapphire"})
			wantCode(t, err, apperr.CodeSchemaViolation)
			if msg := apperr.PublicMessage(err); !strings.Contains(msg, tc.field) {
				t.Fatalf("message = %q, want field %s", msg, tc.field)
			}
			if _, err := f.store.Get(context.Background(), "u1"); !errors.Is(err, userrepo.ErrNotFound) {
				t.Fatalf("plan persisted after violation: %v", err)
			}
		})
	}
}

func TestSaveCardOverwritesOnlyItsKey(t *testing.T) {
	f := newFixture(t, nil,
		planReply("Sapphire v1", "95"),
		planReply("Citi", "0"),
		planReply("Sapphire v2", "95"),
	)
	ctx := context.Background()
	for _, id := range []string{"chase-sapphire", "citi-double", "chase-sapphire"} {
		if _, err := f.svc.SaveCard(ctx, "u1", SaveCardRequest{CardID: id}); err != nil {
			t.Fatalf("SaveCard(%s) error = %v", id, err)
		}
	}
	rec, err := f.store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(rec.SavedCardPlans) != 2 {
		t.Fatalf("saved plans = %d, want 2", len(rec.SavedCardPlans))
	}
	if got := rec.SavedCardPlans["chase-sapphire"].Plan.Name; got != "Sapphire v2" {
		t.Fatalf("chase-sapphire plan = %q, want Sapphire v2", got)
	}
	if got := rec.SavedCardPlans["citi-double"].Plan.Name; got != "Citi" {
		t.Fatalf("citi-double plan = %q, want Citi", got)
	}
	if snap := rec.SavedCardPlans["chase-sapphire"].Card; snap == nil || snap.AnnualFee != 95 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestChatWithEmptyHistory(t *testing.T) {
	f := newFixture(t, nil, "  Start with a no-fee student card.  ")
	reply, err := f.svc.Chat(context.Background(), "new-user", "Which card should I get first?")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "Start with a no-fee student card." {
		t.Fatalf("reply = %q", reply)
	}
	prompt := f.llm.prompts[0]
	for _, want := range []string{"[INPUT]", "Which card should I get first?", `"saved_card_plans": []`, "Chase Sapphire Preferred"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("chat prompt missing %q", want)
		}
	}
	if _, err := f.store.Get(context.Background(), "new-user"); !errors.Is(err, userrepo.ErrNotFound) {
		t.Fatalf("chat wrote a document: %v", err)
	}
}

func TestChatValidatesMessage(t *testing.T) {
	f := newFixture(t, nil, "reply")
	_, err := f.svc.Chat(context.Background(), "u1", "   ")
	wantCode(t, err, apperr.CodeInvalidArgument)
	_, err = f.svc.Chat(context.Background(), "u1", strings.Repeat("a", MaxChatMessageLen+1))
	wantCode(t, err, apperr.CodeInvalidArgument)
	if f.llm.calls() != 0 {
		t.Fatalf("model calls = %d, want 0", f.llm.calls())
	}
}

func TestSubmitAnswersIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	answers := entity.AnswersFromList([]string{"student", "no fee"})

	first, err := f.svc.SubmitAnswers(ctx, "u1", answers, map[string]any{"source": "web"})
	if err != nil || !first.Upserted {
		t.Fatalf("first submit = %+v, %v", first, err)
	}
	before, _ := f.store.Get(ctx, "u1")
	second, err := f.svc.SubmitAnswers(ctx, "u1", answers, map[string]any{"source": "web"})
	if err != nil || second.Upserted {
		t.Fatalf("second submit = %+v, %v", second, err)
	}
	after, _ := f.store.Get(ctx, "u1")
	bl, _ := before.Answers.List()
	al, _ := after.Answers.List()
	if strings.Join(bl, "|") != strings.Join(al, "|") || before.AnswersMetadata["source"] != after.AnswersMetadata["source"] {
		t.Fatalf("document changed: %+v -> %+v", before, after)
	}
}

func TestSubmitAnswersRejectsMissing(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.SubmitAnswers(context.Background(), "u1", entity.Answers{}, nil)
	wantCode(t, err, apperr.CodeInvalidArgument)
	_, err = f.svc.SubmitAnswers(context.Background(), "", entity.AnswersFromList([]string{"a"}), nil)
	wantCode(t, err, apperr.CodeUnauthorized)
}

func TestOnboardAndProfile(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	res, err := f.svc.Onboard(ctx, "u1", entity.ProfileUpdate{
		Email:     "ann@example.com",
		FirstName: "Ann",
		Profile:   map[string]any{"student": true},
	})
	if err != nil || !res.Upserted {
		t.Fatalf("Onboard() = %+v, %v", res, err)
	}
	p, err := f.svc.Profile(ctx, entity.Identity{UserID: "u1", Role: "authenticated"})
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.Email != "ann@example.com" || p.FirstName != "Ann" || p.Profile["student"] != true {
		t.Fatalf("profile = %+v", p)
	}

	_, err = f.svc.Onboard(ctx, "u1", entity.ProfileUpdate{})
	wantCode(t, err, apperr.CodeInvalidArgument)
}
