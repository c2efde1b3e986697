package explain

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"snaplens/internal/logger"
)

const explainSystemPrompt = `You are an assistant that explains photographed documents.
Given text extracted from a photo, explain in simple, plain language what the
document is and what it says. Keep the explanation short and concrete.`

// OpenAIExplainer implements Explainer using an OpenAI chat completion.
type OpenAIExplainer struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIExplainer creates an OpenAI-backed explainer.
func NewOpenAIExplainer(apiKey, model string) (*OpenAIExplainer, error) {
	const op = "NewOpenAIExplainer"

	if apiKey == "" {
		return nil, WrapExplainError(op, ErrMissingAPIKey, "")
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	return &OpenAIExplainer{
		client: openai.NewClient(apiKey),
		model:  model,
		log:    logger.WithComponent("explain-openai"),
	}, nil
}

// NewOpenAIExplainerWithClient creates an explainer with an explicit client
// (for testing).
func NewOpenAIExplainerWithClient(client *openai.Client, model string) *OpenAIExplainer {
	return &OpenAIExplainer{
		client: client,
		model:  model,
		log:    logger.WithComponent("explain-openai"),
	}
}

// Explain requests a single chat completion for the extracted text. An empty
// completion yields FallbackMessage, matching the analyze provider.
func (e *OpenAIExplainer) Explain(ctx context.Context, text string) (string, error) {
	const op = "Explain"

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: explainSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	})
	if err != nil {
		return "", &ExplainError{Op: op, Err: ErrServiceUnavailable, Details: err.Error()}
	}

	if len(resp.Choices) == 0 {
		e.log.Info().Msg("completion returned no choices, using fallback")
		return FallbackMessage, nil
	}

	explanation := strings.TrimSpace(resp.Choices[0].Message.Content)
	if explanation == "" {
		return FallbackMessage, nil
	}

	e.log.Info().
		Str("model", e.model).
		Int("explanation_length", len(explanation)).
		Msg("completion received")

	return explanation, nil
}
