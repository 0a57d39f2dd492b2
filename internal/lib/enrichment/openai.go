package enrichment

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when a generator has no model configured
const DefaultModel = "gpt-3.5-turbo"

// openAIGenerator implements Generator with the OpenAI chat completions API or any
// OpenAI-compatible endpoint
type openAIGenerator struct {
	name   string
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator. An empty baseURL targets api.openai.com, which
// requires apiKey; self-hosted compatible endpoints may not.
func NewOpenAIGenerator(name, apiKey, baseURL, model string) Generator {
	if name == "" {
		name = "openai"
	}
	if model == "" {
		model = DefaultModel
	}
	if apiKey == "" && baseURL == "" {
		return &openAIGenerator{name: name, client: nil, model: model}
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &openAIGenerator{
		name:   name,
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (o *openAIGenerator) Name() string { return o.name }

func (o *openAIGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if o.client == nil {
		return "", errors.New("OpenAI client not initialized - missing API key")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(prompt.Messages)+1)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	for _, m := range prompt.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: m,
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI API")
	}

	return resp.Choices[0].Message.Content, nil
}
