package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"SecFeed/internal/config"
	"SecFeed/internal/ports"
)

// OllamaClient calls a local Ollama server's generate endpoint.
type OllamaClient struct {
	endpoint string
	model    string
	http     *http.Client
}

var _ ports.Completer = (*OllamaClient)(nil)

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaClient creates a reusable HTTP client. Per-call deadlines come from ctx.
func NewOllamaClient(cfg config.OllamaConfig, client *http.Client) *OllamaClient {
	if client == nil {
		client = &http.Client{Timeout: 150 * time.Second}
	}
	return &OllamaClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		http:     client,
	}
}

// Complete sends a non-streaming generate request and returns the model text.
func (c *OllamaClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if c == nil || c.http == nil {
		return "", fmt.Errorf("ollama client is nil")
	}
	if c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("ollama client misconfigured")
	}

	payload := generateRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}

	var resp generateResponse
	if err := c.post(ctx, "/api/generate", payload, &resp); err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Response), nil
}

func (c *OllamaClient) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ollama returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
