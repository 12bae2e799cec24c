package config

import (
	"os"
	"strings"
)

// applyLocalDefaults tunes a config for development on a workstation:
// human-readable logs, and the fake model when no Gemini key is around.
// It only runs when the environment is explicitly local; any other
// environment without a key fails validation instead.
func applyLocalDefaults(cfg *Config) {
	if strings.TrimSpace(os.Getenv("LOG_FORMAT")) == "" {
		cfg.Log.Format = "console"
	}
	if strings.TrimSpace(os.Getenv("LLM_PROVIDER")) == "" &&
		strings.TrimSpace(os.Getenv("GEMINI_API_KEY")) == "" &&
		strings.TrimSpace(cfg.LLM.APIKey) == "" {
		cfg.LLM.Provider = ProviderFake
	}
}
