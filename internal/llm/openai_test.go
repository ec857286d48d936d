package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// textResponse returns an OpenAI text completion response body.
func textResponse(text string) string {
	resp := openaiResponse{
		Choices: []openaiChoice{
			{Message: openaiMessage{Role: "assistant", Content: text}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

// newTestClient creates an OpenAICompatibleClient pointing to a mock server.
func newTestClient(cfg providerConfig, model string, serverURL string) *OpenAICompatibleClient {
	cfg.baseURL = serverURL
	return NewOpenAICompatibleClient(cfg, model)
}

func TestOpenAIComplete(t *testing.T) {
	var capturedReq *http.Request
	var capturedBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		capturedBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(textResponse("Hello from OpenAI")))
	}))
	defer srv.Close()

	client := newTestClient(providers["openai"], "gpt-4o", srv.URL)
	t.Setenv("OPENAI_API_KEY", "test-key-123")

	got, err := client.Complete(context.Background(), "You are helpful", "Hi", 0.7, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello from OpenAI" {
		t.Errorf("got text %q, want %q", got, "Hello from OpenAI")
	}

	if capturedReq.Method != "POST" {
		t.Errorf("got method %s, want POST", capturedReq.Method)
	}
	if !strings.HasSuffix(capturedReq.URL.Path, "/chat/completions") {
		t.Errorf("got path %s, want /chat/completions", capturedReq.URL.Path)
	}
	if got := capturedReq.Header.Get("Authorization"); got != "Bearer test-key-123" {
		t.Errorf("got Authorization %q, want %q", got, "Bearer test-key-123")
	}

	var reqBody openaiRequest
	if err := json.Unmarshal(capturedBody, &reqBody); err != nil {
		t.Fatalf("failed to parse request body: %v", err)
	}
	if reqBody.Model != "gpt-4o" {
		t.Errorf("got model %q, want %q", reqBody.Model, "gpt-4o")
	}
	if reqBody.MaxTokens != 500 {
		t.Errorf("got max_tokens %d, want 500", reqBody.MaxTokens)
	}
	if len(reqBody.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(reqBody.Messages))
	}
	if reqBody.Messages[0].Role != "system" || reqBody.Messages[1].Content != "Hi" {
		t.Errorf("messages = %+v, want system prompt then user Hi", reqBody.Messages)
	}
}

func TestExplicitAPIKeyOverridesEnv(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(textResponse("ok")))
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "from-env")
	m, err := NewClient("openai:gpt-4o", "from-config", nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client := m.(*OpenAICompatibleClient).WithBaseURL(srv.URL)

	if _, err := client.Complete(context.Background(), "", "x", 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bearer from-config" {
		t.Errorf("got Authorization %q, want %q", auth, "Bearer from-config")
	}
}

func TestOllamaNoAuthHeader(t *testing.T) {
	var capturedReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		w.Write([]byte(textResponse("Hello from Ollama")))
	}))
	defer srv.Close()

	client := newTestClient(providers["ollama"], "llama3", srv.URL)
	if _, err := client.Complete(context.Background(), "", "Hello", 0.3, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := capturedReq.Header.Get("Authorization"); got != "" {
		t.Errorf("expected no Authorization header, got %q", got)
	}
}

func TestOpenRouterCustomHeaders(t *testing.T) {
	var capturedReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		w.Write([]byte(textResponse("ok")))
	}))
	defer srv.Close()

	client := newTestClient(providers["openrouter"], "openai/gpt-4o-mini", srv.URL)
	if _, err := client.Complete(context.Background(), "", "Hello", 0.3, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := capturedReq.Header.Get("X-Title"); got != "A2A Support Desk" {
		t.Errorf("got X-Title %q", got)
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error body", 401, `{"error":{"message":"bad key","type":"auth"}}`, "openai API error (401): bad key"},
		{"plain status", 503, `oops`, "openai API error (503): Service Unavailable"},
		{"no choices", 200, `{"choices":[]}`, "no choices in response"},
		{"bad json", 200, `not json`, "failed to parse response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(providers["openai"], "gpt-4o", srv.URL)
			_, err := client.Complete(context.Background(), "", "x", 0, 0)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestClassifyAndGenerate(t *testing.T) {
	answers := map[string]string{
		classifySystemPrompt: " Billing.\n",
		supportSystemPrompt:  "영업시간은 평일 9시부터 6시까지입니다.",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte(textResponse(answers[req.Messages[0].Content])))
	}))
	defer srv.Close()

	client := newTestClient(providers["ollama"], "llama3", srv.URL)

	if got := client.Classify(context.Background(), "환불해 주세요"); got != CategoryBilling {
		t.Errorf("Classify() = %q, want %q", got, CategoryBilling)
	}
	if got := client.Generate(context.Background(), "영업시간?"); !strings.Contains(got, "평일") {
		t.Errorf("Generate() = %q", got)
	}
}

func TestClassifyAndGenerateFailSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	client := newTestClient(providers["ollama"], "llama3", srv.URL)

	if got := client.Classify(context.Background(), "anything"); got != CategoryGeneral {
		t.Errorf("Classify() = %q, want %q", got, CategoryGeneral)
	}
	if got := client.Generate(context.Background(), "anything"); !strings.HasPrefix(got, "죄송합니다. 답변 생성 중 오류가 발생했습니다") {
		t.Errorf("Generate() = %q", got)
	}
}
