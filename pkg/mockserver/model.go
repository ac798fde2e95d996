package mockserver

import (
	"context"

	"github.com/mikeboe/agentsmith/pkg/api"
	"github.com/mikeboe/agentsmith/pkg/llm"
	"github.com/tmc/langchaingo/llms"
)

// ModelResponder answers with a language model.
func ModelResponder(model llms.Model) Responder {
	return func(ctx context.Context, message string, history []api.Turn, passages []string) (string, error) {
		return llm.Generate(ctx, model, message, history, passages)
	}
}
