package conversation

import (
	"context"
	"errors"

	"github.com/wolfman30/autorespond/pkg/logging"
)

// FallbackLLMClient tries each provider in order and returns the first success.
type FallbackLLMClient struct {
	providers []LLMClient
	logger    *logging.Logger
}

// NewFallbackLLMClient drops nil providers. With none left it returns nil so callers
// can treat the result as "no provider configured".
func NewFallbackLLMClient(logger *logging.Logger, providers ...LLMClient) *FallbackLLMClient {
	kept := make([]LLMClient, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &FallbackLLMClient{providers: kept, logger: logging.OrDefault(logger)}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	var errs []error
	for i, provider := range c.providers {
		resp, err := provider.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback LLM succeeded after primary failure", "attempt", i+1, "provider", resp.Provider)
			}
			return resp, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("LLM provider failed",
			"attempt", i+1,
			"error", err.Error(),
			"fallback_available", i+1 < len(c.providers),
		)
	}
	return LLMResponse{}, errors.Join(errs...)
}
