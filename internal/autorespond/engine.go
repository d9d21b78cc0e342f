package autorespond

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/autorespond/internal/observability/metrics"
	"github.com/wolfman30/autorespond/pkg/logging"
)

var engineTracer = otel.Tracer("autorespond.internal.autorespond.engine")

// BookingConfidence is reported for replies produced by the booking dialogue.
const BookingConfidence = 1.0

// Options wires an Engine.
type Options struct {
	Config  Config
	Clients ClientStore
	Catalog CatalogStore
	AI      AIGenerator
	Booking BookingFlow
	SMS     SMSTransport
	Email   EmailTransport
	Log     ConversationLog
	Dedupe  Deduplicator
	Logger  *logging.Logger
	Metrics *metrics.AutoRespondMetrics
	Now     func() time.Time
}

// Engine runs one inbound message through gate, booking dialogue or generator, and dispatch.
type Engine struct {
	cfg        Config
	gate       *Gate
	builder    *ContextBuilder
	generator  *Generator
	booking    BookingFlow
	dispatcher *Dispatcher
	dedupe     Deduplicator
	logger     *logging.Logger
	metrics    *metrics.AutoRespondMetrics
	now        func() time.Time
}

func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Clients == nil || opts.Catalog == nil {
		return nil, fmt.Errorf("autorespond: client and catalog stores are required")
	}
	logger := logging.OrDefault(opts.Logger)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:       opts.Config,
		gate:      NewGate(now),
		builder:   NewContextBuilder(opts.Clients, opts.Catalog, logger),
		generator: NewGenerator(opts.AI, opts.Config, logger, opts.Metrics),
		booking:   opts.Booking,
		dispatcher: NewDispatcher(DispatcherOptions{
			SMS:     opts.SMS,
			Email:   opts.Email,
			Log:     opts.Log,
			Logger:  logger,
			Metrics: opts.Metrics,
			Now:     now,
		}),
		dedupe:  opts.Dedupe,
		logger:  logger,
		metrics: opts.Metrics,
		now:     now,
	}, nil
}

// Process handles one inbound message to completion. Internal failures are
// reported in the result and never leak into outbound text.
func (e *Engine) Process(ctx context.Context, msg InboundMessage) DispatchResult {
	ctx, span := engineTracer.Start(ctx, "autorespond.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("autorespond.channel", string(msg.Channel)),
		attribute.String("autorespond.message_id", msg.MessageID),
	)

	started := e.now()
	defer func() {
		e.metrics.ObservePipelineLatency(string(msg.Channel), e.now().Sub(started).Seconds())
	}()

	if err := msg.Validate(); err != nil {
		e.metrics.ObserveInbound(string(msg.Channel), "malformed")
		e.logger.Warn("rejected malformed inbound message", "channel", msg.Channel, "error", err)
		return failed(err)
	}
	e.metrics.ObserveInbound(string(msg.Channel), "accepted")

	res := e.process(ctx, msg)
	if res.Err != nil {
		span.RecordError(res.Err)
	}
	span.SetAttributes(
		attribute.Bool("autorespond.sent", res.ResponseSent),
		attribute.String("autorespond.reason", string(res.Reason)),
	)
	e.logger.Info("auto-response processed",
		"channel", msg.Channel,
		"from", msg.From,
		"message_id", msg.MessageID,
		"success", res.Success,
		"sent", res.ResponseSent,
		"reason", res.Reason,
		"source", res.Source,
	)
	return res
}

func (e *Engine) process(ctx context.Context, msg InboundMessage) DispatchResult {
	if e.dedupe != nil && msg.MessageID != "" {
		fresh, err := e.dedupe.MarkProcessed(ctx, string(msg.Channel), msg.MessageID)
		if err != nil {
			return failed(fmt.Errorf("autorespond: dedupe: %w", err))
		}
		if !fresh {
			return skipped(ReasonDuplicate)
		}
	}

	// Policy checks need no I/O and run before the client is looked up or created.
	decision := e.gate.Evaluate(msg, nil, e.cfg)
	if !decision.ShouldRespond {
		e.metrics.ObserveDecision(string(msg.Channel), string(decision.Reason))
		return skipped(decision.Reason)
	}

	client, err := e.builder.ResolveClient(ctx, msg)
	if err != nil {
		return failed(err)
	}
	decision = e.gate.CheckClient(client)
	e.metrics.ObserveDecision(string(msg.Channel), string(decision.Reason))
	if !decision.ShouldRespond {
		return skipped(decision.Reason)
	}

	if msg.Channel == ChannelSMS && e.booking != nil {
		turn, handled, err := e.booking.Intercept(ctx, msg.From, msg.Body)
		if err != nil {
			return failed(fmt.Errorf("autorespond: booking flow: %w", err))
		}
		if handled {
			defer turn.Discard()
			gen := GeneratedResponse{
				Success:    true,
				Message:    turn.Reply(),
				Confidence: BookingConfidence,
				Source:     SourceBooking,
			}
			e.metrics.ObserveGeneration(string(SourceBooking), "sent")
			res := e.dispatcher.Dispatch(ctx, msg, gen, client, "")
			if res.ResponseSent {
				if err := turn.Commit(ctx); err != nil {
					e.logger.Error("booking state not saved after reply was sent",
						"from", msg.From,
						"message_id", msg.MessageID,
						"error", err,
					)
				}
			}
			return res
		}
	}

	rctx, err := e.builder.Build(ctx, client, msg)
	if err != nil {
		return failed(err)
	}
	gen := e.generator.Generate(ctx, msg, rctx)
	return e.dispatcher.Dispatch(ctx, msg, gen, client, rctx.BusinessName)
}
