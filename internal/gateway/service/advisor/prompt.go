package advisor

import (
	"fmt"

	"zentra/internal/gateway/entity"
	"zentra/internal/llmtool"
)

type promptExtra struct {
	Card    *entity.Card
	Message string
}

type recommendInput struct {
	Answers         entity.Answers `json:"answers"`
	AnswersMetadata map[string]any `json:"answers_metadata"`
	Catalog         []entity.Card  `json:"catalog"`
}

type planInput struct {
	Answers entity.Answers `json:"answers"`
	Card    entity.Card    `json:"card"`
}

type chatProfile struct {
	Email     string         `json:"email,omitempty"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Details   map[string]any `json:"details"`
}

type chatInput struct {
	Profile         chatProfile                 `json:"profile"`
	Answers         entity.Answers              `json:"answers"`
	SavedCardPlans  []SavedPlan                 `json:"saved_card_plans"`
	Recommendations []entity.CardRecommendation `json:"recommendations"`
	Catalog         []entity.Card               `json:"catalog"`
	Message         string                      `json:"message"`
}

var (
	recommendSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose:    "Recommend the three credit cards from the catalog that best fit this user.",
		Background: "The user answered a short survey about income, spending habits and goals. The catalog lists every card that may be recommended.",
		Output:     &recommendSchema,
		Rules: []string{
			"Recommend three different cards, best fit first.",
			"Copy name, imageUrl and interestRate from the matching catalog entry.",
			"Write descriptions and bullets in the second person.",
		},
		OutputFormat: "A JSON array only.",
		Language:     "English",
	}, llmtool.PresetStrictJSON(), llmtool.PresetCatalogOnly())

	planSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose:    "Write a practical usage plan for the card the user just saved.",
		Background: "The card comes from the catalog. The survey answers describe the user's habits and goals.",
		Output:     &planSchema,
		Rules: []string{
			"Use the card's issuer, fee and rewards from the input.",
			"Tips must be concrete actions tied to the user's answers.",
		},
		OutputFormat: "A single JSON object only.",
		Language:     "English",
	}, llmtool.PresetStrictJSON(), llmtool.PresetCatalogOnly())

	chatSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose:    "Answer the user's message as a friendly credit card advisor.",
		Background: "The input holds what is known about the user: profile, survey answers, saved cards with plans and earlier recommendations. Any of it may be empty.",
		Assumptions: []string{
			"Missing history means the user has not done that step yet.",
		},
		OutputFormat: "Plain text, at most a few short paragraphs.",
		Language:     "English",
	}, llmtool.PresetPlainText(), llmtool.PresetCatalogOnly())
)

// buildPrompt is pure: equal arguments give byte-identical prompts.
func buildPrompt(task Task, b *Bundle, extra promptExtra) (string, error) {
	switch task {
	case TaskRecommend:
		return llmtool.RenderStructuredPrompt(recommendSpec, recommendInput{
			Answers:         b.Answers,
			AnswersMetadata: b.AnswersMetadata,
			Catalog:         b.Catalog.Cards(),
		})
	case TaskPlan:
		if extra.Card == nil {
			return "", fmt.Errorf("guidance plan needs a card")
		}
		return llmtool.RenderStructuredPrompt(planSpec, planInput{
			Answers: b.Answers,
			Card:    *extra.Card,
		})
	case TaskChat:
		return llmtool.RenderStructuredPrompt(chatSpec, chatInput{
			Profile: chatProfile{
				Email:     b.Email,
				FirstName: b.FirstName,
				LastName:  b.LastName,
				Details:   b.Profile,
			},
			Answers:         b.Answers,
			SavedCardPlans:  b.SavedPlans,
			Recommendations: b.Recommendations,
			Catalog:         b.Catalog.Cards(),
			Message:         extra.Message,
		})
	default:
		return "", fmt.Errorf("unknown task %q", task)
	}
}
