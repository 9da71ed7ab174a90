package config

import "strings"

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

// applyLocalDefaults lets `go run ./cmd/api` work on a fresh checkout: no
// API key selects the offline model, and logs stay human readable.
func applyLocalDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		if cfg.LLM.APIKey == "" {
			cfg.LLM.Provider = "fake"
		} else {
			cfg.LLM.Provider = "gemini"
		}
	}
	cfg.Log.Format = firstNonEmpty(cfg.Log.Format, "text")
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
}
