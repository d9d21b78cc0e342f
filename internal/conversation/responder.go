package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/autorespond/internal/autorespond"
	"github.com/wolfman30/autorespond/pkg/logging"
)

var responderTracer = otel.Tracer("autorespond.internal.conversation.responder")

// ErrMalformedReply is returned when the model output is not the expected JSON object.
var ErrMalformedReply = errors.New("conversation: model reply was not valid JSON")

// ResponderOptions tunes each completion request.
type ResponderOptions struct {
	MaxTokens   int32
	Temperature float32
	Timeout     time.Duration
}

// AIResponder turns an inbound message and business context into a scored reply.
type AIResponder struct {
	client LLMClient
	opts   ResponderOptions
	logger *logging.Logger
}

// NewAIResponder accepts a nil client; Generate then reports the provider as not configured.
func NewAIResponder(client LLMClient, opts ResponderOptions, logger *logging.Logger) *AIResponder {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	return &AIResponder{client: client, opts: opts, logger: logging.OrDefault(logger)}
}

func (r *AIResponder) Generate(ctx context.Context, prompt string, rctx autorespond.ResponseContext, channel autorespond.Channel) (autorespond.AIResult, error) {
	if r == nil || r.client == nil {
		return autorespond.AIResult{}, autorespond.ErrProviderNotConfigured
	}
	ctx, span := responderTracer.Start(ctx, "conversation.generate")
	defer span.End()
	span.SetAttributes(attribute.String("autorespond.channel", string(channel)))

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.client.Complete(ctx, LLMRequest{
		System:      []string{BuildSystemPrompt(rctx, channel)},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   r.opts.MaxTokens,
		Temperature: r.opts.Temperature,
		JSON:        true,
	})
	if err != nil {
		span.RecordError(err)
		return autorespond.AIResult{}, err
	}
	r.logger.Debug("llm completion",
		"provider", resp.Provider,
		"latency_ms", time.Since(start).Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)

	result, err := ParseAIReply(resp.Text)
	if err != nil {
		span.RecordError(err)
		return autorespond.AIResult{}, err
	}
	span.SetAttributes(attribute.Float64("autorespond.confidence", result.Confidence))
	return result, nil
}

type aiReply struct {
	Answer           string   `json:"answer"`
	Confidence       *float64 `json:"confidence"`
	SuggestedActions []string `json:"suggested_actions"`
}

// ParseAIReply decodes the model's JSON answer. Code fences and leading chatter are
// tolerated. A missing confidence counts as zero; values are clamped to [0, 1].
func ParseAIReply(raw string) (autorespond.AIResult, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return autorespond.AIResult{}, ErrMalformedReply
	}
	var reply aiReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return autorespond.AIResult{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	answer := strings.TrimSpace(reply.Answer)
	if answer == "" {
		return autorespond.AIResult{}, fmt.Errorf("%w: empty answer", ErrMalformedReply)
	}

	var confidence float64
	if reply.Confidence != nil {
		confidence = min(max(*reply.Confidence, 0), 1)
	}
	actions := make([]string, 0, len(reply.SuggestedActions))
	for _, a := range reply.SuggestedActions {
		if a = strings.TrimSpace(a); a != "" {
			actions = append(actions, a)
		}
	}
	return autorespond.AIResult{Message: answer, Confidence: confidence, SuggestedActions: actions}, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
