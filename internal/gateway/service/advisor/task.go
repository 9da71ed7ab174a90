package advisor

import (
	"zentra/internal/gateway/entity"
	"zentra/internal/llm"
	"zentra/internal/llmtool"
)

// Task names one kind of generation request.
type Task string

const (
	TaskRecommend Task = llm.PhaseRecommend
	TaskPlan      Task = llm.PhasePlan
	TaskChat      Task = llm.PhaseChat
)

const (
	recommendCount = 3
	maxChatPlans   = 20
	// MaxChatMessageLen bounds the user's chat message, in characters.
	MaxChatMessageLen = 4000
)

// The one declaration per structured task. Prompt text, provider response
// schema and validation are all derived from these.
var (
	recommendSchema = llmtool.MustSchemaFor("recommendations", entity.CardRecommendation{}, recommendCount)
	planSchema      = llmtool.MustSchemaFor("plan", entity.GuidancePlan{}, 0)
)

func (t Task) mode() llm.Mode {
	if t == TaskChat {
		return llm.ModeFreeText
	}
	return llm.ModeStructuredJSON
}

func (t Task) schema() *llmtool.Schema {
	switch t {
	case TaskRecommend:
		return &recommendSchema
	case TaskPlan:
		return &planSchema
	default:
		return nil
	}
}
