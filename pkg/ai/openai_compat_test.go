package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"scanbrief/pkg/domain"
)

func chatHandler(t *testing.T, capture *chatRequest, reply string, tokens int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"choices": [{"message": {"role": "assistant", "content": %q}}],
			"usage": {"total_tokens": %d}
		}`, reply, tokens)
	}
}

func TestCompleteSummarize(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(chatHandler(t, &got, "the summary", 123))
	defer srv.Close()

	client := NewOpenAICompatClient(srv.URL+"/v1", "test-key", "gpt-4o-mini")
	completion, err := client.Complete(context.Background(), CompletionRequest{
		Text:           "hello world",
		Mode:           domain.ModeSummarize,
		SummaryLength:  domain.LengthShort,
		OutputLanguage: "English",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completion.Content != "the summary" {
		t.Fatalf("content = %q", completion.Content)
	}
	if completion.TokensUsed != 123 {
		t.Fatalf("tokens = %d, want 123", completion.TokensUsed)
	}
	if got.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", got.Model)
	}
	if got.Temperature != 0.6 || got.MaxTokens != 500 {
		t.Fatalf("tuning = (%v, %d), want (0.6, 500)", got.Temperature, got.MaxTokens)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if !strings.Contains(got.Messages[0].Content, "2-3 sentence") {
		t.Fatalf("system prompt missing short-length instruction: %q", got.Messages[0].Content)
	}
	if !strings.Contains(got.Messages[1].Content, "hello world") {
		t.Fatalf("user prompt missing text: %q", got.Messages[1].Content)
	}
}

func TestCompleteAnalyzeTuningAndLanguage(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(chatHandler(t, &got, "the analysis", 7))
	defer srv.Close()

	client := NewOpenAICompatClient(srv.URL+"/v1", "", "local-model")
	_, err := client.Complete(context.Background(), CompletionRequest{
		Text:           "print('hi')",
		Mode:           domain.ModeAnalyzeCode,
		OutputLanguage: "German",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Temperature != 0.5 || got.MaxTokens != 1500 {
		t.Fatalf("tuning = (%v, %d), want (0.5, 1500)", got.Temperature, got.MaxTokens)
	}
	if !strings.Contains(got.Messages[0].Content, "expert code analyzer") {
		t.Fatalf("system prompt = %q", got.Messages[0].Content)
	}
	if !strings.Contains(got.Messages[0].Content, "in German") {
		t.Fatalf("system prompt should request German output: %q", got.Messages[0].Content)
	}
}

func TestDetectLanguageTruncatesSnippet(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(chatHandler(t, &got, "  Python\n", 5))
	defer srv.Close()

	client := NewOpenAICompatClient(srv.URL+"/v1", "", "local-model")
	lang, err := client.DetectLanguage(context.Background(), strings.Repeat("x", 2000))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if lang != "Python" {
		t.Fatalf("lang = %q, want Python", lang)
	}
	if got.MaxTokens != 50 {
		t.Fatalf("maxTokens = %d, want 50", got.MaxTokens)
	}
	if len(got.Messages[1].Content) > 600 {
		t.Fatalf("snippet not truncated, len = %d", len(got.Messages[1].Content))
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit_error"}}`))
	}))
	defer srv.Close()

	client := NewOpenAICompatClient(srv.URL+"/v1", "key", "model")
	_, err := client.Complete(context.Background(), CompletionRequest{Text: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want APIError 429", err)
	}
	if !strings.Contains(apiErr.Message, "rate limited") {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	client := NewOpenAICompatClient(srv.URL+"/v1", "key", "model")
	if _, err := client.Complete(context.Background(), CompletionRequest{Text: "x"}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"rate limit", &APIError{StatusCode: 429}, true},
		{"server error", &APIError{StatusCode: 503}, true},
		{"bad request", &APIError{StatusCode: 400}, false},
		{"unauthorized", &APIError{StatusCode: 401}, false},
		{"url error", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")}, true},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
