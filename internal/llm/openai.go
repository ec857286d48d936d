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
	supportSystemPrompt  = "당신은 친절하고 도움이 되는 고객 지원 에이전트입니다. 질문에 정확하고 간결하게 답변해주세요."
	classifySystemPrompt = "다음 카테고리 중 하나로 고객 질문을 분류하세요: general, product, shipping, billing, other"
)

// providerConfig holds the configuration for an OpenAI-compatible provider.
type providerConfig struct {
	name      string
	baseURL   string
	apiKeyEnv string
	headers   map[string]string
}

// providers is the registry of OpenAI-compatible provider configurations.
// Adding a new provider requires only a new entry here.
var providers = map[string]providerConfig{
	"openai": {
		name:      "openai",
		baseURL:   "https://api.openai.com/v1",
		apiKeyEnv: "OPENAI_API_KEY",
	},
	"mistral": {
		name:      "mistral",
		baseURL:   "https://api.mistral.ai/v1",
		apiKeyEnv: "MISTRAL_API_KEY",
	},
	"ollama": {
		name:      "ollama",
		baseURL:   "http://localhost:11434/v1",
		apiKeyEnv: "",
	},
	"openrouter": {
		name:      "openrouter",
		baseURL:   "https://openrouter.ai/api/v1",
		apiKeyEnv: "OPENROUTER_API_KEY",
		headers: map[string]string{
			"X-Title": "A2A Support Desk",
		},
	},
}

// OpenAICompatibleClient handles communication with OpenAI-compatible APIs.
type OpenAICompatibleClient struct {
	model  string
	apiKey string
	config providerConfig
	client *http.Client
	logger *zap.Logger
}

// NewOpenAICompatibleClient creates a new client for the given provider config and model name.
// Validation is lazy: missing API keys do not cause errors at creation time.
func NewOpenAICompatibleClient(cfg providerConfig, model string) *OpenAICompatibleClient {
	// Ollama: override base URL from env var
	if cfg.name == "ollama" {
		if envURL := os.Getenv("OLLAMA_BASE_URL"); envURL != "" {
			cfg.baseURL = envURL
		}
	}
	return &OpenAICompatibleClient{
		model:  model,
		config: cfg,
		client: &http.Client{Timeout: httpClientTimeout},
		logger: zap.NewNop(),
	}
}

// WithLogger sets the logger used to report fail-soft errors.
func (c *OpenAICompatibleClient) WithLogger(l *zap.Logger) *OpenAICompatibleClient {
	c.logger = l.With(zap.String("component", "llm"), zap.String("provider", c.config.name))
	return c
}

// WithBaseURL points the client at another endpoint.
func (c *OpenAICompatibleClient) WithBaseURL(u string) *OpenAICompatibleClient {
	c.config.baseURL = strings.TrimRight(u, "/")
	return c
}

// OpenAI Chat Completions request/response types

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiErrorResponse struct {
	Error *openaiError `json:"error"`
}

type openaiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// Classify asks the model for a category.
func (c *OpenAICompatibleClient) Classify(ctx context.Context, query string) Category {
	return classifyWith(ctx, c, c.logger, query)
}

// Generate asks the model to answer a customer query.
func (c *OpenAICompatibleClient) Generate(ctx context.Context, query string) string {
	return generateWith(ctx, c, c.logger, query)
}

// Provider returns the provider name, e.g. "openai".
func (c *OpenAICompatibleClient) Provider() string { return c.config.name }

// Complete sends a single-turn chat completion request.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	msgs := make([]openaiMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, openaiMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, openaiMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(openaiRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.config.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// Explicit key wins over the provider's env var
	apiKey := c.apiKey
	if apiKey == "" && c.config.apiKeyEnv != "" {
		apiKey = os.Getenv(c.config.apiKeyEnv)
	}
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	for k, v := range c.config.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var errResp openaiErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return "", fmt.Errorf("%s API error (%d): %s", c.config.name, httpResp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("%s API error (%d): %s", c.config.name, httpResp.StatusCode, http.StatusText(httpResp.StatusCode))
	}

	var oaiResp openaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(oaiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return oaiResp.Choices[0].Message.Content, nil
}
