package llmtool

// PromptPreset holds reusable constraints and rules for structured prompts.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// ApplyPresets prepends preset constraints/rules to a structured prompt spec.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var merged PromptPreset
	for _, p := range presets {
		merged.Constraints = append(merged.Constraints, p.Constraints...)
		merged.Rules = append(merged.Rules, p.Rules...)
	}
	spec.Constraints = append(merged.Constraints, spec.Constraints...)
	spec.Rules = append(merged.Rules, spec.Rules...)
	return spec
}

// PresetStrictJSON enforces strict JSON-only output.
func PresetStrictJSON() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Return strict JSON only. No prose before or after it.",
			"Match the schema exactly; no extra fields.",
			"No markdown, code fences, comments, or trailing commas.",
		},
	}
}

// PresetCatalogOnly keeps the model from inventing cards.
func PresetCatalogOnly() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Only use cards, fees, rates and image URLs present in the provided catalog; never invent them.",
		},
	}
}

// PresetPlainText asks for conversational text instead of JSON.
func PresetPlainText() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Answer in plain text. Do not return JSON.",
		},
		Rules: []string{
			"This is general educational guidance, not individualized financial advice; say so when the user asks for a decision.",
		},
	}
}
