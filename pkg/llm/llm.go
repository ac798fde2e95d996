// Package llm builds the language model the mock backend can answer with.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikeboe/agentsmith/pkg/api"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"

	DefaultOpenAIModel = "gpt-3.5-turbo"
	DefaultGoogleModel = "gemini-3-flash-preview"

	systemPrompt = "You are AgentSmith, a helpful AI assistant. Be concise, friendly, and informative."
	maxTokens    = 500
	temperature  = 0.7
)

type Config struct {
	Provider string
	APIKey   string
	// BaseURL only applies to OpenAI-compatible endpoints.
	BaseURL string
	Model   string
}

// New returns the model for cfg.Provider.
func New(ctx context.Context, cfg Config) (llms.Model, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		model := cfg.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return llm, nil

	case ProviderGoogle:
		model := cfg.Model
		if model == "" {
			model = DefaultGoogleModel
		}
		llm, err := googleai.New(ctx, googleai.WithAPIKey(cfg.APIKey), googleai.WithDefaultModel(model))
		if err != nil {
			return nil, fmt.Errorf("failed to create google ai client: %w", err)
		}
		return llm, nil
	}
	return nil, fmt.Errorf("invalid provider: %s", cfg.Provider)
}

// Messages builds the prompt: the system message with any retrieved
// passages, the prior turns, then the new user message.
func Messages(message string, history []api.Turn, passages []string) []llms.MessageContent {
	system := systemPrompt
	if len(passages) > 0 {
		system += "\n\nContext from uploaded documents:\n" + strings.Join(passages, "\n\n") +
			"\n\nUse this context to answer the user's question."
	}

	msgs := make([]llms.MessageContent, 0, len(history)+2)
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, system))
	for _, t := range history {
		role := llms.ChatMessageTypeHuman
		if t.Role == api.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, t.Content))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, message))
	return msgs
}

// Generate asks model for a reply to message.
func Generate(ctx context.Context, model llms.Model, message string, history []api.Turn, passages []string) (string, error) {
	resp, err := model.GenerateContent(ctx, Messages(message, history, passages),
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(temperature),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("failed to generate reply: empty response")
	}
	return resp.Choices[0].Content, nil
}
