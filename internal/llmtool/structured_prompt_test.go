package llmtool

import (
	"strings"
	"testing"
)

type sampleOutput struct {
	Summary string   `json:"summary" prompt_desc:"Short summary."`
	Risks   []string `json:"risks" prompt:"optional" prompt_len:"2"`
}

func TestRenderStructuredPrompt_RendersSections(t *testing.T) {
	schema := MustSchemaFor("Sample", sampleOutput{}, 0)
	spec := StructuredPromptSpec{
		Purpose:      "Summarize the user's situation.",
		Background:   "Survey answers follow.",
		Output:       &schema,
		OutputFormat: "JSON only.",
		Language:     "English",
		Constraints:  []string{"No markdown."},
		Rules:        []string{"Be concise."},
		Assumptions:  []string{"If unsure, return empty strings."},
		Examples: []PromptExample{
			{InputJSON: `{"income":"x"}`, OutputJSON: `{"summary":"ok"}`},
		},
	}

	out, err := RenderStructuredPrompt(spec, map[string]any{"income": "demo"})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	wantSections := []string{
		"[PURPOSE]",
		"[BACKGROUND]",
		"[INPUT]",
		"[OUTPUT]",
		"[CONSTRAINTS]",
		"[RULES]",
		"[ASSUMPTIONS]",
		"[OUTPUT_FORMAT]",
		"[LANGUAGE]",
		"[EXAMPLES]",
	}
	for _, sec := range wantSections {
		if !strings.Contains(out, sec) {
			t.Fatalf("expected section %s in prompt", sec)
		}
	}
	if !strings.Contains(out, "- risks ([]string, exactly 2 items, optional)") {
		t.Fatalf("expected risks field line in prompt:\n%s", out)
	}
}

func TestRenderStructuredPrompt_IsDeterministic(t *testing.T) {
	schema := MustSchemaFor("Sample", sampleOutput{}, 3)
	spec := StructuredPromptSpec{Purpose: "x", Output: &schema}
	input := map[string]any{"z": 1, "a": []string{"q"}, "m": map[string]any{"k2": 2, "k1": 1}}

	first, err := RenderStructuredPrompt(spec, input)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := RenderStructuredPrompt(spec, input)
		if err != nil {
			t.Fatalf("render error: %v", err)
		}
		if again != first {
			t.Fatalf("render %d differs:\n%s\n---\n%s", i, first, again)
		}
	}
}

func TestRenderStructuredPrompt_RequiresPurpose(t *testing.T) {
	schema := MustSchemaFor("Sample", sampleOutput{}, 0)
	_, err := RenderStructuredPrompt(StructuredPromptSpec{Output: &schema}, nil)
	if err == nil || !strings.Contains(err.Error(), "purpose") {
		t.Fatalf("expected purpose error, got %v", err)
	}
}

func TestRenderStructuredPrompt_RequiresOutput(t *testing.T) {
	_, err := RenderStructuredPrompt(StructuredPromptSpec{Purpose: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "output fields") {
		t.Fatalf("expected output fields error, got %v", err)
	}
	// Free-text tasks describe their reply in OUTPUT_FORMAT.
	if _, err := RenderStructuredPrompt(StructuredPromptSpec{Purpose: "x", OutputFormat: "Plain text."}, nil); err != nil {
		t.Fatalf("free-text spec error: %v", err)
	}
}

func TestApplyPresets_PrependConstraintsAndRules(t *testing.T) {
	spec := StructuredPromptSpec{
		Purpose:     "x",
		Constraints: []string{"spec-constraint"},
		Rules:       []string{"spec-rule"},
	}
	preset := PromptPreset{
		Constraints: []string{"preset-constraint"},
		Rules:       []string{"preset-rule"},
	}
	applied := ApplyPresets(spec, preset)
	if len(applied.Constraints) < 2 || applied.Constraints[0] != "preset-constraint" {
		t.Fatalf("expected preset constraint prepended, got %+v", applied.Constraints)
	}
	if len(applied.Rules) < 2 || applied.Rules[0] != "preset-rule" {
		t.Fatalf("expected preset rule prepended, got %+v", applied.Rules)
	}
}
