package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClaudeComplete(t *testing.T) {
	var (
		captured *http.Request
		req      claudeRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte(`{"content":[{"type":"text","text":"product"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	t.Setenv(claudeAPIKeyEnv, "env-key")
	client := NewClaudeClient("claude-sonnet-4-5", "").WithBaseURL(srv.URL)

	if got := client.Classify(context.Background(), "스마트폰 가격"); got != CategoryProduct {
		t.Errorf("Classify() = %q, want %q", got, CategoryProduct)
	}
	if captured.URL.Path != "/messages" {
		t.Errorf("got path %s, want /messages", captured.URL.Path)
	}
	if got := captured.Header.Get("x-api-key"); got != "env-key" {
		t.Errorf("got x-api-key %q", got)
	}
	if got := captured.Header.Get("anthropic-version"); got != claudeAPIVersion {
		t.Errorf("got anthropic-version %q", got)
	}
	if req.System != classifySystemPrompt || req.MaxTokens != 20 {
		t.Errorf("got system %q max_tokens %d", req.System, req.MaxTokens)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Errorf("got messages %+v", req.Messages)
	}
}

func TestClaudeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error body", 401, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, "claude API error (401): invalid x-api-key"},
		{"no text", 200, `{"content":[]}`, "no text in response"},
		{"bad json", 502, `<html>`, "failed to parse response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClaudeClient("m", "k").WithBaseURL(srv.URL)
			_, err := client.Complete(context.Background(), "", "x", 0, 10)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %v, want containing %q", err, tt.wantErr)
			}
			if got := client.Generate(context.Background(), "x"); !strings.HasPrefix(got, "죄송합니다") {
				t.Errorf("Generate() = %q, want apology", got)
			}
		})
	}
}

func TestGeminiComplete(t *testing.T) {
	var (
		captured *http.Request
		req      geminiRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"영업시간은 "},{"text":"평일 9시부터입니다."}]}}]}`))
	}))
	defer srv.Close()

	client := NewGeminiClient("gemini-2.0-flash", "cfg-key").WithBaseURL(srv.URL)
	got := client.Generate(context.Background(), "영업시간?")
	if got != "영업시간은 평일 9시부터입니다." {
		t.Errorf("Generate() = %q", got)
	}
	if captured.URL.Path != "/gemini-2.0-flash:generateContent" {
		t.Errorf("got path %s", captured.URL.Path)
	}
	if got := captured.URL.Query().Get("key"); got != "cfg-key" {
		t.Errorf("got key %q", got)
	}
	if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != supportSystemPrompt {
		t.Errorf("system instruction not sent: %+v", req.SystemInstruction)
	}
	if req.GenerationConfig == nil || req.GenerationConfig.MaxOutputTokens != 500 {
		t.Errorf("generation config = %+v", req.GenerationConfig)
	}
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"api error", `{"error":{"code":400,"message":"API key not valid"}}`, "gemini API error (400): API key not valid"},
		{"no candidates", `{"candidates":[]}`, "no candidates in response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewGeminiClient("m", "k").WithBaseURL(srv.URL)
			_, err := client.Complete(context.Background(), "", "x", 0, 0)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %v, want containing %q", err, tt.wantErr)
			}
			if got := client.Classify(context.Background(), "x"); got != CategoryGeneral {
				t.Errorf("Classify() = %q, want general", got)
			}
		})
	}
}
