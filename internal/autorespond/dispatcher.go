package autorespond

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/autorespond/internal/clients"
	"github.com/wolfman30/autorespond/internal/notify"
	"github.com/wolfman30/autorespond/internal/observability/metrics"
	"github.com/wolfman30/autorespond/pkg/logging"
)

// Dispatcher sends a generated reply on the message's channel and records the exchange.
type Dispatcher struct {
	sms     SMSTransport
	email   EmailTransport
	log     ConversationLog
	logger  *logging.Logger
	metrics *metrics.AutoRespondMetrics
	now     func() time.Time
}

// DispatcherOptions wires the dispatcher. Any transport may be nil when that channel is unused.
type DispatcherOptions struct {
	SMS     SMSTransport
	Email   EmailTransport
	Log     ConversationLog
	Logger  *logging.Logger
	Metrics *metrics.AutoRespondMetrics
	Now     func() time.Time
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		sms:     opts.SMS,
		email:   opts.Email,
		log:     opts.Log,
		logger:  logging.OrDefault(opts.Logger),
		metrics: opts.Metrics,
		now:     now,
	}
}

// Dispatch sends gen unless it failed or was withheld. Persistence failures after a
// successful send are logged and do not change the result.
func (d *Dispatcher) Dispatch(ctx context.Context, msg InboundMessage, gen GeneratedResponse, client *clients.Client, businessName string) DispatchResult {
	if !gen.Success {
		err := gen.Err
		if err == nil {
			err = fmt.Errorf("autorespond: generation failed")
		}
		return failed(err)
	}
	if gen.Withheld {
		d.metrics.ObserveDispatch(string(msg.Channel), false)
		res := skipped(ReasonBelowConfidence)
		res.Confidence = gen.Confidence
		res.Source = gen.Source
		return res
	}

	var err error
	switch msg.Channel {
	case ChannelEmail:
		err = d.sendEmail(ctx, msg, gen.Message, businessName)
	case ChannelSMS:
		err = d.sendSMS(ctx, msg, gen)
	default:
		err = fmt.Errorf("%w: unknown channel %q", ErrMalformedMessage, msg.Channel)
	}
	if err != nil {
		d.metrics.ObserveDispatchError(string(msg.Channel))
		d.logger.Error("auto-reply send failed", "channel", msg.Channel, "to", msg.From, "error", err)
		res := failed(err)
		res.Confidence = gen.Confidence
		res.Source = gen.Source
		return res
	}
	d.metrics.ObserveDispatch(string(msg.Channel), true)

	d.record(ctx, msg, gen, client)
	return DispatchResult{
		Success:      true,
		ResponseSent: true,
		Response:     gen.Message,
		Confidence:   gen.Confidence,
		Source:       gen.Source,
	}
}

func (d *Dispatcher) sendEmail(ctx context.Context, msg InboundMessage, reply, businessName string) error {
	if d.email == nil {
		return fmt.Errorf("autorespond: no email transport configured")
	}
	html, err := renderEmailReply(msg, reply, businessName)
	if err != nil {
		return err
	}
	return d.email.Send(ctx, notify.EmailMessage{
		To:        msg.From,
		From:      msg.To,
		FromName:  businessName,
		Subject:   replySubject(msg.Subject),
		Body:      reply,
		HTML:      html,
		InReplyTo: msg.MessageID,
	})
}

func (d *Dispatcher) sendSMS(ctx context.Context, msg InboundMessage, gen GeneratedResponse) error {
	if d.sms == nil {
		return fmt.Errorf("autorespond: no sms transport configured")
	}
	return d.sms.SendSMS(ctx, OutboundSMS{
		To:   msg.From,
		From: msg.To,
		Body: gen.Message,
		Metadata: map[string]string{
			"source":        string(gen.Source),
			"in_reply_to":   msg.MessageID,
			"provider_acct": msg.AccountID,
		},
	})
}

func (d *Dispatcher) record(ctx context.Context, msg InboundMessage, gen GeneratedResponse, client *clients.Client) {
	if d.log == nil {
		return
	}
	rec := ConversationRecord{
		Channel:    msg.Channel,
		Inbound:    msg.Text(),
		Outbound:   gen.Message,
		Confidence: gen.Confidence,
		Metadata: ConversationMetadata{
			AIGenerated:      gen.Source == SourceAI,
			FallbackResponse: gen.Source == SourceFallback,
			BookingFlow:      gen.Source == SourceBooking,
			MessageID:        msg.MessageID,
			Subject:          msg.Subject,
			SuggestedActions: gen.SuggestedActions,
		},
		CreatedAt: d.now().UTC(),
	}
	if client != nil {
		rec.ClientID = client.ID
	}
	if err := d.log.SaveConversation(ctx, rec); err != nil {
		d.logger.Error("failed to save conversation record", "channel", msg.Channel, "client_id", rec.ClientID, "error", err)
	}
}
