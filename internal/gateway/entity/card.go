package entity

import (
	"bytes"
	"encoding/json"
	"time"
)

// Card is one entry of the static card catalog.
type Card struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Issuer           string  `json:"issuer"`
	CardType         string  `json:"card_type"`
	AnnualFee        float64 `json:"annual_fee"`
	APRRange         string  `json:"apr_range"`
	ImageURL         string  `json:"image_url"`
	RewardsStructure string  `json:"rewards_structure"`
}

// CardSnapshot is the copy of catalog fields stored alongside a saved plan,
// so later catalog edits do not change what the user was shown.
type CardSnapshot struct {
	ID        string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	Issuer    string  `json:"issuer,omitempty"`
	CardType  string  `json:"card_type,omitempty"`
	AnnualFee float64 `json:"annual_fee"`
	APRRange  string  `json:"apr_range,omitempty"`
	ImageURL  string  `json:"image_url,omitempty"`
}

func (c Card) Snapshot() CardSnapshot {
	return CardSnapshot{
		ID:        c.ID,
		Name:      c.Name,
		Issuer:    c.Issuer,
		CardType:  c.CardType,
		AnnualFee: c.AnnualFee,
		APRRange:  c.APRRange,
		ImageURL:  c.ImageURL,
	}
}

// CardRecommendation is one model-produced recommendation. The struct tags
// are the output contract: they feed both the prompt and the validator.
type CardRecommendation struct {
	Name         string   `json:"name" prompt_desc:"Card name exactly as it appears in the catalog."`
	ImageURL     string   `json:"imageUrl" prompt_desc:"image_url of the catalog entry."`
	InterestRate string   `json:"interestRate" prompt_desc:"APR range of the card, e.g. \"20.24% - 28.24% variable\"."`
	Description  string   `json:"description" prompt_desc:"Two sentences on why this card fits the user's answers."`
	Bullets      []string `json:"bullets" prompt_len:"4" prompt_desc:"Short benefit statements tailored to the user."`
}

// GuidancePlan is the model-produced usage plan for a saved card.
type GuidancePlan struct {
	Name                   string   `json:"name" prompt_desc:"Card name."`
	Issuer                 string   `json:"issuer" prompt_desc:"Card issuer."`
	Category               string   `json:"category" prompt_desc:"Card category, e.g. travel, cashback, student."`
	AnnualFee              float64  `json:"annualFee" prompt_type:"number" prompt_desc:"Annual fee in USD as a number."`
	RewardRate             string   `json:"rewardRate" prompt_desc:"Headline reward rate."`
	KeyFeatures            []string `json:"keyFeatures" prompt_len:"5" prompt_desc:"Most important features for this user."`
	SpendingTip            string   `json:"spendingTip" prompt_desc:"One tip on where to put spending."`
	UpgradePathTip         string   `json:"upgradePathTip" prompt_desc:"One tip on when and how to upgrade."`
	MonthlyOptimizationTip string   `json:"monthlyOptimizationTip" prompt_desc:"One monthly habit that maximizes value."`
	ExtraTips              []string `json:"extraTips" prompt_len:"3" prompt_desc:"Additional short tips."`
}

// SavedCardPlan is the value stored under saved_card_plans[card_id].
type SavedCardPlan struct {
	Card    *CardSnapshot `json:"card,omitempty"`
	Plan    GuidancePlan  `json:"plan"`
	SavedAt time.Time     `json:"saved_at,omitzero"`
}

// UnmarshalJSON also accepts legacy entries that stored the plan object
// directly, without the {card, plan} envelope.
func (s *SavedCardPlan) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	_, hasPlan := probe["plan"]
	_, hasCard := probe["card"]
	if !hasPlan && !hasCard {
		var plan GuidancePlan
		if err := json.Unmarshal(data, &plan); err != nil {
			return err
		}
		*s = SavedCardPlan{Plan: plan}
		return nil
	}
	type envelope SavedCardPlan
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&env); err != nil {
		return err
	}
	*s = SavedCardPlan(env)
	return nil
}
