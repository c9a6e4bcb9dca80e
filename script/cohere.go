package script

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// CohereCompleter generates text with Cohere's chat endpoint.
type CohereCompleter struct {
	client *cohereclient.Client
	model  string
}

// NewCohereCompleter creates a Cohere-backed completer.
func NewCohereCompleter(apiKey, model string) (*CohereCompleter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("COHERE_API_KEY not set")
	}
	if model == "" {
		model = "command-r-plus"
	}
	httpClient := &http.Client{Timeout: 90 * time.Second}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereCompleter{client: client, model: model}, nil
}

func (c *CohereCompleter) Name() string { return "cohere" }

// Complete ignores req.Schema; the prompt already spells out the JSON shape.
func (c *CohereCompleter) Complete(ctx context.Context, req Request) (string, error) {
	model := c.model
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message: req.Prompt,
		Model:   &model,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("cohere chat returned empty response")
	}
	return resp.Text, nil
}
