package llm

import (
	"context"

	apperrors "omnichat/internal/errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// openaiProvider serves both OpenAI and Groq. Groq exposes an
// OpenAI-compatible API, so the same client works with a different base URL.
type openaiProvider struct {
	client *openai.Client
	name   string
}

func newOpenAIProvider(apiKey string) Provider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiProvider{client: &client, name: "openai"}
}

func newGroqProvider(apiKey string) Provider {
	client := openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(groqBaseURL))
	return &openaiProvider{client: &client, name: "groq"}
}

func (p *openaiProvider) Name() string {
	return p.name
}

func (p *openaiProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	params := openai.ChatCompletionNewParams{
		Model:               req.Model,
		Messages:            buildMessages(req),
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(req.MaxTokens),
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
		for i, tool := range req.Tools {
			tools[i] = openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  tool.Parameters,
				},
			}
		}
		params.Tools = tools
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, apperrors.NewLLMError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeLLMAPI, "model returned no choices")
	}

	choice := resp.Choices[0]
	result := &Result{Text: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: []byte(tc.Function.Arguments),
		})
	}

	return result, nil
}

func buildMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(msg.Content))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				},
			})
		case RoleTool:
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	return messages
}
