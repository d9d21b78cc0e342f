package autorespond

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/autorespond/internal/observability/metrics"
	"github.com/wolfman30/autorespond/pkg/logging"
)

var generatorTracer = otel.Tracer("autorespond.internal.autorespond.generator")

const ellipsis = "..."

// Generator produces reply text: AI first, templates when no provider is configured.
type Generator struct {
	ai        AIGenerator
	threshold float64
	maxLength int
	logger    *logging.Logger
	metrics   *metrics.AutoRespondMetrics
}

// NewGenerator builds a generator. A nil ai is treated as an unconfigured provider.
func NewGenerator(ai AIGenerator, cfg Config, logger *logging.Logger, m *metrics.AutoRespondMetrics) *Generator {
	return &Generator{
		ai:        ai,
		threshold: cfg.ConfidenceThreshold,
		maxLength: cfg.MaxResponseLength,
		logger:    logging.OrDefault(logger),
		metrics:   m,
	}
}

// Generate never returns an error directly; failures are reported in GeneratedResponse.Err.
func (g *Generator) Generate(ctx context.Context, msg InboundMessage, rctx ResponseContext) GeneratedResponse {
	ctx, span := generatorTracer.Start(ctx, "autorespond.generate")
	defer span.End()
	span.SetAttributes(attribute.String("autorespond.channel", string(msg.Channel)))

	var (
		result AIResult
		err    = ErrProviderNotConfigured
	)
	if g.ai != nil {
		result, err = g.ai.Generate(ctx, msg.Text(), rctx, msg.Channel)
	}

	if errors.Is(err, ErrProviderNotConfigured) {
		g.metrics.ObserveGeneration(string(SourceFallback), "sent")
		g.logger.Info("ai provider not configured; using fallback template", "channel", msg.Channel)
		return GeneratedResponse{
			Success:    true,
			Message:    Truncate(FallbackReply(msg.Text(), rctx.BusinessName), g.maxLength),
			Confidence: FallbackConfidence,
			Source:     SourceFallback,
		}
	}
	if err != nil {
		span.RecordError(err)
		g.metrics.ObserveGeneration(string(SourceAI), "error")
		return GeneratedResponse{Source: SourceAI, Err: fmt.Errorf("autorespond: ai generation: %w", err)}
	}

	text := strings.TrimSpace(result.Message)
	if text == "" {
		err := errors.New("autorespond: ai generation returned empty text")
		span.RecordError(err)
		g.metrics.ObserveGeneration(string(SourceAI), "error")
		return GeneratedResponse{Source: SourceAI, Err: err}
	}

	span.SetAttributes(attribute.Float64("autorespond.confidence", result.Confidence))
	resp := GeneratedResponse{
		Success:          true,
		Confidence:       result.Confidence,
		SuggestedActions: result.SuggestedActions,
		Source:           SourceAI,
	}
	// Confidence is judged on the full text, before truncation.
	if result.Confidence < g.threshold {
		resp.Withheld = true
		g.metrics.ObserveGeneration(string(SourceAI), "withheld")
		g.logger.Info("ai reply withheld below confidence threshold",
			"channel", msg.Channel,
			"confidence", result.Confidence,
			"threshold", g.threshold,
		)
		return resp
	}
	resp.Message = Truncate(text, g.maxLength)
	g.metrics.ObserveGeneration(string(SourceAI), "sent")
	return resp
}

// Truncate shortens text to max runes, ending in "...". max <= 0 disables the limit.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return strings.TrimRight(string(runes[:max-len(ellipsis)]), " ") + ellipsis
}
