package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const httpClientTimeout = 60 * time.Second

// Category is the routing class of a customer query.
type Category string

const (
	CategoryGeneral  Category = "general"
	CategoryProduct  Category = "product"
	CategoryShipping Category = "shipping"
	CategoryBilling  Category = "billing"
	CategoryOther    Category = "other"
)

// Categories lists every valid category.
var Categories = []Category{CategoryGeneral, CategoryProduct, CategoryShipping, CategoryBilling, CategoryOther}

// ParseCategory normalises a model answer into a Category. Anything that
// is not exactly one of the known categories becomes CategoryGeneral.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ".\"'` ")
	for _, c := range Categories {
		if s == string(c) {
			return c
		}
	}
	return CategoryGeneral
}

// Classifier assigns a category to a query. Implementations never fail:
// on any error they return CategoryGeneral.
type Classifier interface {
	Classify(ctx context.Context, query string) Category
}

// Generator writes a free-text answer. Implementations never fail: on any
// error they return an apology that includes the cause.
type Generator interface {
	Generate(ctx context.Context, query string) string
}

// Model is both a Classifier and a Generator.
type Model interface {
	Classifier
	Generator
}

// completer is a single-turn chat endpoint.
type completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)
}

// NewClient creates an LLM client based on the model name.
//
// Format: "provider:model" (colon is mandatory).
//
//	"openai:gpt-4o"                 → OpenAI
//	"mistral:mistral-large-latest"  → Mistral
//	"ollama:llama3"                 → Ollama
//	"openrouter:openai/gpt-4o-mini" → OpenRouter
//	"claude:claude-sonnet-4-5"      → Anthropic
//	"gemini:gemini-2.0-flash"       → Gemini
//
// apiKey overrides the provider's API key environment variable when set.
func NewClient(model, apiKey string, logger *zap.Logger) (Model, error) {
	provider, modelName, hasColon := strings.Cut(model, ":")
	if !hasColon {
		return nil, fmt.Errorf("invalid model format %q: expected \"provider:model\" (e.g. \"openai:gpt-4o\")", model)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch provider {
	case "claude":
		return NewClaudeClient(modelName, apiKey).WithLogger(logger), nil
	case "gemini":
		return NewGeminiClient(modelName, apiKey).WithLogger(logger), nil
	}

	cfg, ok := providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %q", provider)
	}
	c := NewOpenAICompatibleClient(cfg, modelName)
	c.apiKey = apiKey
	return c.WithLogger(logger), nil
}

func classifyWith(ctx context.Context, c completer, logger *zap.Logger, query string) Category {
	answer, err := c.Complete(ctx, classifySystemPrompt,
		fmt.Sprintf("다음 고객 질문을 카테고리로 분류해주세요: '%s'", query), 0.3, 20)
	if err != nil {
		logger.Warn("classification failed", zap.Error(err))
		return CategoryGeneral
	}
	return ParseCategory(answer)
}

func generateWith(ctx context.Context, c completer, logger *zap.Logger, query string) string {
	answer, err := c.Complete(ctx, supportSystemPrompt, query, 0.7, 500)
	if err != nil {
		logger.Warn("generation failed", zap.Error(err))
		return generationError(err)
	}
	return answer
}

// generationError is the fail-soft answer returned by generators.
func generationError(err error) string {
	return fmt.Sprintf("죄송합니다. 답변 생성 중 오류가 발생했습니다: %v", err)
}
