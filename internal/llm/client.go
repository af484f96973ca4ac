// Package llm provides the reply-generation client used by the demo agent.
// It talks to an Ollama-style generate endpoint and wraps every call with
// circuit breaker protection so a degraded model endpoint cannot stall the
// chat pipeline.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ReplyGenerator is the interface the agent depends on for response text.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Client handles communication with the model endpoint for reply generation.
type Client struct {
	baseURL        string
	model          string
	timeout        time.Duration
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	// BaseURL is the base URL for the generate API (default: http://localhost:11434)
	BaseURL string

	// Model is the model name to use for replies (default: qwen2.5:7b)
	Model string

	// Timeout is the request timeout duration (default: 10s)
	Timeout time.Duration
}

// generateRequest is the request body for the /api/generate endpoint.
type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the response from the /api/generate endpoint.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewClient creates a reply-generation client. Missing configuration values
// fall back to the defaults documented on ClientConfig.
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "qwen2.5:7b"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL: config.BaseURL,
		model:   config.Model,
		timeout: config.Timeout,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		circuitBreaker: NewCircuitBreaker(),
	}
}

// GenerateReply sends the system prompt and user message to the model and
// returns the response text. The call is wrapped with circuit breaker
// protection; when the circuit is open, ErrCircuitOpen is returned without
// hitting the endpoint.
func (c *Client) GenerateReply(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.generate(ctx, systemPrompt, userMessage)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// BreakerState exposes the circuit breaker state for the stats endpoint.
func (c *Client) BreakerState() string {
	return c.circuitBreaker.State()
}

// generate is the internal implementation without breaker wrapping.
func (c *Client) generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := generateRequest{
		Model:  c.model,
		System: systemPrompt,
		Prompt: userMessage,
		Stream: false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("llm: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("llm: unexpected status %d: %s", resp.StatusCode, string(data))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("llm: failed to decode response: %w", err)
	}

	return genResp.Response, nil
}
