package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"skitbot/api"
	"skitbot/types"
)

// ComposerClient is a thin HTTP client for the composition API
type ComposerClient struct {
	baseURL string
	client  *http.Client
}

// NewComposerClient creates a new composition API client
func NewComposerClient(baseURL string) *ComposerClient {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &ComposerClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Start submits a composition request and returns the new composition id
func (c *ComposerClient) Start(ctx context.Context, req types.CompositionRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/generate", req, &out); err != nil {
		return "", fmt.Errorf("failed to start composition: %w", err)
	}
	return out.ID, nil
}

// Status fetches the current state of a composition
func (c *ComposerClient) Status(ctx context.Context, id string) (*api.StatusResponse, error) {
	var status api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/compositions/"+id, nil, &status); err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &status, nil
}

// Regenerate re-renders a finished composition from its stored speech
func (c *ComposerClient) Regenerate(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodPost, "/api/compositions/"+id+"/regenerate", api.RegenerateBody{}, nil); err != nil {
		return fmt.Errorf("failed to regenerate: %w", err)
	}
	return nil
}

func (c *ComposerClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, env.Error)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return nil
}
