package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"scanbrief/pkg/domain"
)

// OpenAICompatClient calls any OpenAI-compatible /v1/chat/completions
// endpoint. Works with the hosted API, vLLM, LiteLLM, OpenRouter, and
// self-hosted models.
type OpenAICompatClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAICompatClient builds the client. baseURL should include the /v1
// prefix, e.g. "https://api.openai.com/v1". apiKey can be empty for local
// models that do not require authentication.
func NewOpenAICompatClient(baseURL, apiKey, model string) *OpenAICompatClient {
	return &OpenAICompatClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Complete runs the summarize or analyze task and returns content plus total
// token usage.
func (c *OpenAICompatClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	system, user := buildPrompts(req)
	temperature, maxTokens := tuningFor(req.Mode)
	resp, err := c.chat(ctx, system, user, temperature, maxTokens)
	if err != nil {
		return Completion{}, err
	}
	return resp, nil
}

// DetectLanguage asks the model to name the programming language of a code
// snippet. Only the first 500 runes are sent.
func (c *OpenAICompatClient) DetectLanguage(ctx context.Context, code string) (string, error) {
	snippet := []rune(code)
	if len(snippet) > 500 {
		snippet = snippet[:500]
	}
	resp, err := c.chat(ctx,
		"You are a programming language detector. Identify the programming language and respond with just the language name.",
		fmt.Sprintf("What programming language is this?\n\n%s", string(snippet)),
		0.3, 50)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

func (c *OpenAICompatClient) chat(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (Completion, error) {
	if c.model == "" {
		return Completion{}, fmt.Errorf("llm model required")
	}
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return Completion{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Completion{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return Completion{}, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return Completion{}, fmt.Errorf("llm decode: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return Completion{}, fmt.Errorf("empty response from llm api")
	}
	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if content == "" {
		return Completion{}, fmt.Errorf("empty response from llm api")
	}
	return Completion{
		Content:    content,
		TokensUsed: chatResp.Usage.TotalTokens,
	}, nil
}

func tuningFor(mode domain.Mode) (temperature float64, maxTokens int) {
	if mode == domain.ModeAnalyzeCode {
		return 0.5, 1500
	}
	return 0.6, 500
}

// APIError reports a non-2xx LLM response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error (%d): %s", e.StatusCode, e.Message)
}

// OpenAI-compatible request/response types.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
