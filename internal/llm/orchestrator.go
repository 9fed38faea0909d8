package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"omnichat/internal/constants"
	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"

	"github.com/sirupsen/logrus"
)

const searchListingsToolName = "search_listings"

const listingRenderInstruction = "When presenting properties, use only the listings returned by the " +
	"search_listings tool. Never invent a listing. If the tool returned none, say so and ask the " +
	"customer to broaden their criteria. Render each listing's first image as a markdown image: " +
	"![Title](url)."

// ListingSearcher is the data-side contract the tool loop calls into.
type ListingSearcher interface {
	SearchListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error)
}

// ProviderFactory builds a Provider for an agent. Tests swap in fakes here.
type ProviderFactory func(provider models.LLMProvider, apiKey string) (Provider, error)

// Orchestrator turns a conversation history into an agent reply, running the
// listing-search tool loop when the agent has it enabled.
type Orchestrator struct {
	searcher ListingSearcher
	factory  ProviderFactory
	logger   *logrus.Logger
}

func NewOrchestrator(searcher ListingSearcher, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		searcher: searcher,
		factory:  NewProvider,
		logger:   logger,
	}
}

// NewOrchestratorWithFactory is the test seam for injecting fake providers.
func NewOrchestratorWithFactory(searcher ListingSearcher, factory ProviderFactory, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		searcher: searcher,
		factory:  factory,
		logger:   logger,
	}
}

// Reply generates the agent's answer to the latest user message. history is
// the conversation so far, oldest first, latest user turn last.
func (o *Orchestrator) Reply(ctx context.Context, agent *models.Agent, apiKey string, history []models.Message) (string, error) {
	provider, err := o.factory(agent.Provider, apiKey)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(constants.DefaultGenerationTimeoutSec)*time.Second)
	defer cancel()

	temperature := agent.Temperature
	if temperature == 0 {
		temperature = constants.DefaultTemperature
	}
	maxTokens := int64(agent.MaxTokens)
	if maxTokens == 0 {
		maxTokens = constants.DefaultMaxTokens
	}

	req := Request{
		Model:       agent.Model,
		System:      agent.SystemPrompt,
		Messages:    historyToMessages(history),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if agent.ListingSearch {
		req.Tools = []ToolDef{searchListingsTool()}
	}

	result, err := provider.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	if len(result.ToolCalls) == 0 {
		return result.Text, nil
	}

	return o.resolveToolCalls(ctx, provider, req, result)
}

// resolveToolCalls executes the requested tool calls and runs a second pass
// so the model can compose its answer from the tool output. The second pass
// carries no tool definitions, which bounds the loop at one round.
func (o *Orchestrator) resolveToolCalls(ctx context.Context, provider Provider, req Request, first *Result) (string, error) {
	req.Messages = append(req.Messages, Message{
		Role:      RoleAssistant,
		Content:   first.Text,
		ToolCalls: first.ToolCalls,
	})

	for _, call := range first.ToolCalls {
		output, err := o.runTool(ctx, call)
		if err != nil {
			return "", err
		}
		req.Messages = append(req.Messages, Message{
			Role:       RoleTool,
			ToolCallID: call.ID,
			Content:    output,
		})
	}

	req.Tools = nil
	req.System = req.System + "\n\n" + listingRenderInstruction

	result, err := provider.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func (o *Orchestrator) runTool(ctx context.Context, call ToolCall) (string, error) {
	if call.Name != searchListingsToolName {
		return "", apperrors.New(apperrors.ErrCodeLLMAPI,
			fmt.Sprintf("model requested unknown tool: %s", call.Name))
	}

	var args struct {
		City        string  `json:"city"`
		Type        string  `json:"type"`
		MaxPrice    float64 `json:"max_price"`
		MinBedrooms int     `json:"min_bedrooms"`
	}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeLLMAPI, "invalid tool arguments")
		}
	}

	listings, err := o.searcher.SearchListings(ctx, models.ListingFilter{
		City:        args.City,
		Type:        args.Type,
		MaxPrice:    args.MaxPrice,
		MinBedrooms: args.MinBedrooms,
	})
	if err != nil {
		return "", err
	}

	o.logger.WithFields(logrus.Fields{
		"tool":    call.Name,
		"city":    args.City,
		"results": len(listings),
	}).Debug("Tool call executed")

	if len(listings) == 0 {
		return `{"listings":[]}`, nil
	}

	payload, err := json.Marshal(map[string]interface{}{"listings": listings})
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool output: %w", err)
	}
	return string(payload), nil
}

func searchListingsTool() ToolDef {
	return ToolDef{
		Name:        searchListingsToolName,
		Description: "Search the property catalog. All filters are optional; combine them to narrow results.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"city": map[string]interface{}{
					"type":        "string",
					"description": "City name, matched case-insensitively as a substring",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Property type, for example apartment or house",
				},
				"max_price": map[string]interface{}{
					"type":        "number",
					"description": "Upper price bound",
				},
				"min_bedrooms": map[string]interface{}{
					"type":        "integer",
					"description": "Minimum number of bedrooms",
				},
			},
		},
	}
}

// historyToMessages flattens stored messages into provider turns. Media-only
// messages become a short placeholder so the model keeps conversational
// context without the binary content.
func historyToMessages(history []models.Message) []Message {
	messages := make([]Message, 0, len(history))
	for _, msg := range history {
		role := RoleUser
		if msg.Sender == models.SenderAgent {
			role = RoleAssistant
		}
		if msg.Sender == models.SenderSystem {
			continue
		}

		content := msg.Text
		if content == "" && msg.Media != nil {
			if msg.Media.Caption != "" {
				content = msg.Media.Caption
			} else {
				content = fmt.Sprintf("[%s message]", msg.Media.Type)
			}
		}
		if content == "" {
			continue
		}

		messages = append(messages, Message{Role: role, Content: content})
	}
	return messages
}
