package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	claudeBaseURL    = "https://api.anthropic.com/v1"
	claudeAPIVersion = "2023-06-01"
	claudeAPIKeyEnv  = "ANTHROPIC_API_KEY"
)

// ClaudeClient talks to the Anthropic Messages API.
type ClaudeClient struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClaudeClient creates a Claude client. The API key falls back to
// ANTHROPIC_API_KEY at request time.
func NewClaudeClient(model, apiKey string) *ClaudeClient {
	return &ClaudeClient{
		model:   model,
		apiKey:  apiKey,
		baseURL: claudeBaseURL,
		client:  &http.Client{Timeout: httpClientTimeout},
		logger:  zap.NewNop(),
	}
}

// WithLogger sets the logger used to report fail-soft errors.
func (c *ClaudeClient) WithLogger(l *zap.Logger) *ClaudeClient {
	c.logger = l.With(zap.String("component", "llm"), zap.String("provider", "claude"))
	return c
}

// WithBaseURL points the client at another endpoint.
func (c *ClaudeClient) WithBaseURL(u string) *ClaudeClient {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// Provider returns "claude".
func (c *ClaudeClient) Provider() string { return "claude" }

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content    []claudeContentBlock `json:"content"`
	StopReason string               `json:"stop_reason"`
	Error      *claudeError         `json:"error,omitempty"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type claudeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Classify asks Claude for a category.
func (c *ClaudeClient) Classify(ctx context.Context, query string) Category {
	return classifyWith(ctx, c, c.logger, query)
}

// Generate asks Claude to answer a customer query.
func (c *ClaudeClient) Generate(ctx context.Context, query string) string {
	return generateWith(ctx, c, c.logger, query)
}

// Complete sends a single-turn Messages request and joins the text blocks
// of the reply.
func (c *ClaudeClient) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(claudeRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      systemPrompt,
		Temperature: temperature,
		Messages:    []claudeMessage{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	apiKey := c.apiKey
	if apiKey == "" {
		apiKey = os.Getenv(claudeAPIKeyEnv)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", claudeAPIVersion)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var claudeResp claudeResponse
	if err := json.Unmarshal(respBody, &claudeResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if claudeResp.Error != nil {
		return "", fmt.Errorf("claude API error (%d): %s", httpResp.StatusCode, claudeResp.Error.Message)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", fmt.Errorf("claude API error (%d): %s", httpResp.StatusCode, http.StatusText(httpResp.StatusCode))
	}

	var text strings.Builder
	for _, block := range claudeResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no text in response")
	}
	return text.String(), nil
}
