package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Phases understood by FakeClient. They match the task names the advisor
// tags requests with.
const (
	PhaseRecommend = "recommend_top3"
	PhasePlan      = "guidance_plan"
	PhaseChat      = "chat_advice"
)

// FakeClient returns deterministic, minimal payloads per phase for
// offline runs and demos.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Complete(ctx context.Context, req Request) (string, error) {
	var obj any
	switch PhaseFrom(ctx) {
	case PhaseRecommend:
		recs := make([]map[string]any, 0, 3)
		for _, name := range []string{"Starter Cashback", "Everyday Rewards", "Travel Plus"} {
			recs = append(recs, map[string]any{
				"name":         name,
				"imageUrl":     "",
				"interestRate": "19.99% - 27.99% variable",
				"description":  "Fake recommendation for offline runs.",
				"bullets":      []string{"No annual fee", "Simple rewards", "Builds credit", "Mobile app"},
			})
		}
		obj = recs
	case PhasePlan:
		obj = map[string]any{
			"name":                   "Fake Card",
			"issuer":                 "Fake Bank",
			"category":               "cashback",
			"annualFee":              0,
			"rewardRate":             "1.5% on everything",
			"keyFeatures":            []string{"f1", "f2", "f3", "f4", "f5"},
			"spendingTip":            "Put recurring bills on the card.",
			"upgradePathTip":         "Ask for a product change after 12 months.",
			"monthlyOptimizationTip": "Pay the statement balance in full.",
			"extraTips":              []string{"t1", "t2", "t3"},
		}
	case PhaseChat:
		return "This is a fake advisor reply for offline runs.", nil
	default:
		if req.Mode != ModeStructuredJSON {
			return "ok", nil
		}
		obj = map[string]any{}
	}
	var b strings.Builder
	if err := json.NewEncoder(&b).Encode(obj); err != nil {
		return "", err
	}
	return b.String(), nil
}
