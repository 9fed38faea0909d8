package service

import (
	"omnichat/internal/constants"
	"omnichat/internal/models"
)

// EffectiveValue resolves a layered setting: per-entity override first, then
// the workspace-wide value, then the fallback.
func EffectiveValue(override, global, fallback string) string {
	if override != "" {
		return override
	}
	if global != "" {
		return global
	}
	return fallback
}

// ProviderSettingKey names the workspace setting holding the shared API key
// for a model vendor.
func ProviderSettingKey(provider models.LLMProvider) string {
	switch provider {
	case models.ProviderOpenAI:
		return constants.SettingOpenAIAPIKey
	case models.ProviderGroq:
		return constants.SettingGroqAPIKey
	case models.ProviderGemini:
		return constants.SettingGeminiAPIKey
	default:
		return ""
	}
}

// ProviderEnvKey names the environment variable consulted as the last
// credential fallback.
func ProviderEnvKey(provider models.LLMProvider) string {
	switch provider {
	case models.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case models.ProviderGroq:
		return "GROQ_API_KEY"
	case models.ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}
