// Package conversation talks to hosted language models and keeps the log of
// auto-response exchanges.
package conversation

import (
	"context"
	"errors"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ErrEmptyCompletion is returned when a provider answers with no text.
var ErrEmptyCompletion = errors.New("conversation: provider returned no text")

// ChatMessage is one turn sent to a provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMRequest is provider-neutral. Model overrides the client's default when set.
// A negative Temperature leaves the provider default in place. JSON asks the
// provider for a JSON object where it supports that.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	JSON        bool
}

type LLMResponse struct {
	Text       string
	Provider   string
	Usage      TokenUsage
	StopReason string
}

// LLMClient is one provider, or a chain of them.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

func modelOrDefault(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}
