package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultOpenRouterURL is used when no base URL is configured for the
// OpenAI-compatible completer.
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

// OpenAIConfig configures an OpenAI-compatible chat completion endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// StructuredOutput sends the response schema as a strict json_schema
	// response format. Not every OpenRouter model accepts it.
	StructuredOutput bool
	Temperature      float64
}

// OpenAICompleter talks to OpenAI or any OpenAI-compatible gateway such as OpenRouter.
type OpenAICompleter struct {
	client     openai.Client
	model      string
	structured bool
	temp       float64
}

// NewOpenAICompleter creates a completer.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("script provider API key not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterURL
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4o-mini"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.9
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	)
	return &OpenAICompleter{
		client:     client,
		model:      cfg.Model,
		structured: cfg.StructuredOutput,
		temp:       cfg.Temperature,
	}, nil
}

func (o *OpenAICompleter) Name() string { return "openai" }

// Complete sends a single user message and returns the first choice's content.
func (o *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Model:       openai.ChatModel(o.model),
		Temperature: openai.Float(o.temp),
	}
	if o.structured && req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty response, finish reason: %s", completion.Choices[0].FinishReason)
	}
	return content, nil
}
