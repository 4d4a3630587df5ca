package ai

import (
	"context"
	"errors"
	"net"
	"net/url"

	"scanbrief/pkg/domain"
)

// CompletionRequest carries extracted text plus the options governing the
// LLM task.
type CompletionRequest struct {
	Text           string
	Mode           domain.Mode
	SummaryLength  domain.SummaryLength
	OutputLanguage string
}

// Completion is the LLM output together with total token usage as reported
// by the provider.
type Completion struct {
	Content    string
	TokensUsed int
}

// Completer is the LLM collaborator. All providers speak through this
// interface; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	// DetectLanguage names the programming language of a code snippet.
	// Best-effort; callers treat errors as "unknown".
	DetectLanguage(ctx context.Context, code string) (string, error)
}

// IsTransient reports whether an error is worth one retry: timeouts, network
// failures, rate limiting, and provider 5xx responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
