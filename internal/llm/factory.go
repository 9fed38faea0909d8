package llm

import (
	"fmt"

	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"
)

// NewProvider builds a Provider for the given vendor. Adding a vendor to
// models.LLMProvider without a case here is a programming error surfaced at
// runtime, not silently mapped to a default.
func NewProvider(provider models.LLMProvider, apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, apperrors.New(apperrors.ErrCodeMissingConfig,
			fmt.Sprintf("no API key available for provider %s", provider))
	}

	switch provider {
	case models.ProviderOpenAI:
		return newOpenAIProvider(apiKey), nil
	case models.ProviderGroq:
		return newGroqProvider(apiKey), nil
	case models.ProviderGemini:
		return newGeminiProvider(apiKey), nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported LLM provider: %s", provider))
	}
}

// ResolveAPIKey picks the first non-empty credential, preferring the agent's
// own key over the workspace-wide one over the process environment.
func ResolveAPIKey(agentKey, globalKey, envKey string) string {
	if agentKey != "" {
		return agentKey
	}
	if globalKey != "" {
		return globalKey
	}
	return envKey
}
