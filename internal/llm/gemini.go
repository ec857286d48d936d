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
	geminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiAPIKeyEnv = "GEMINI_API_KEY"
)

// GeminiClient talks to the Gemini generateContent API.
type GeminiClient struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewGeminiClient creates a Gemini client. The API key falls back to
// GEMINI_API_KEY at request time.
func NewGeminiClient(model, apiKey string) *GeminiClient {
	return &GeminiClient{
		model:   model,
		apiKey:  apiKey,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: httpClientTimeout},
		logger:  zap.NewNop(),
	}
}

// WithLogger sets the logger used to report fail-soft errors.
func (c *GeminiClient) WithLogger(l *zap.Logger) *GeminiClient {
	c.logger = l.With(zap.String("component", "llm"), zap.String("provider", "gemini"))
	return c
}

// WithBaseURL points the client at another endpoint.
func (c *GeminiClient) WithBaseURL(u string) *GeminiClient {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// Provider returns "gemini".
func (c *GeminiClient) Provider() string { return "gemini" }

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Classify asks Gemini for a category.
func (c *GeminiClient) Classify(ctx context.Context, query string) Category {
	return classifyWith(ctx, c, c.logger, query)
}

// Generate asks Gemini to answer a customer query.
func (c *GeminiClient) Generate(ctx context.Context, query string) string {
	return generateWith(ctx, c, c.logger, query)
}

// Complete sends a single-turn generateContent request.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: userPrompt}}}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	apiKey := c.apiKey
	if apiKey == "" {
		apiKey = os.Getenv(geminiAPIKeyEnv)
	}
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if geminiResp.Error != nil {
		return "", fmt.Errorf("gemini API error (%d): %s", geminiResp.Error.Code, geminiResp.Error.Message)
	}
	if len(geminiResp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	var text strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}
