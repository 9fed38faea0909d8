package models

import (
	"time"
)

// LLMProvider is the language-model backend an agent runs on
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "OPENAI"
	ProviderGroq   LLMProvider = "GROQ"
	ProviderGemini LLMProvider = "GEMINI"
)

// Agent is an AI persona bound to integrations. Read-only input to the
// response orchestrator.
type Agent struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Provider      LLMProvider `json:"provider"`
	Model         string      `json:"model"`
	SystemPrompt  string      `json:"system_prompt"`
	Temperature   float64     `json:"temperature"`
	MaxTokens     int         `json:"max_tokens"`
	APIKey        string      `json:"-"`
	ListingSearch bool        `json:"listing_search"`
	ReplyInGroups bool        `json:"reply_in_groups"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
