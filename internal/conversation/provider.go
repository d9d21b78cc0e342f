package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/autorespond/pkg/logging"
)

// ProviderConfig selects language model providers. Each provider is enabled by its
// credential (or model id, for Bedrock, whose credentials come from the AWS chain).
type ProviderConfig struct {
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	Bedrock        bedrockConverseAPI
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string
}

// BuildLLMClient chains every configured provider in the order OpenAI, Bedrock,
// Gemini. It returns a nil client when none is configured. cleanup is never nil.
func BuildLLMClient(ctx context.Context, cfg ProviderConfig, logger *logging.Logger) (LLMClient, func(), error) {
	logger = logging.OrDefault(logger)
	cleanup := func() {}

	var (
		providers []LLMClient
		names     []string
	)
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client, err := NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, cleanup, err
		}
		providers = append(providers, client)
		names = append(names, "openai")
	}
	if cfg.Bedrock != nil && strings.TrimSpace(cfg.BedrockModelID) != "" {
		providers = append(providers, NewBedrockLLMClient(cfg.Bedrock, cfg.BedrockModelID))
		names = append(names, "bedrock")
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		client, err := NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, cleanup, fmt.Errorf("conversation: gemini: %w", err)
		}
		providers = append(providers, client)
		names = append(names, "gemini")
		cleanup = func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close gemini client", "error", err)
			}
		}
	}

	if len(providers) == 0 {
		logger.Info("no LLM provider configured; replies will use templates")
		return nil, cleanup, nil
	}
	logger.Info("LLM providers configured", "providers", strings.Join(names, ","))
	if len(providers) == 1 {
		return providers[0], cleanup, nil
	}
	return NewFallbackLLMClient(logger, providers...), cleanup, nil
}
