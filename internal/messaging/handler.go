package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/autorespond/internal/autorespond"
	"github.com/wolfman30/autorespond/internal/observability/metrics"
	"github.com/wolfman30/autorespond/pkg/logging"
)

var webhookTracer = otel.Tracer("autorespond.internal.messaging.webhook")

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// ErrBusy is returned by an Inbound that cannot accept more work right now.
var ErrBusy = errors.New("messaging: inbound queue full")

// Inbound accepts normalized inbound messages from the webhooks.
type Inbound interface {
	Handle(ctx context.Context, msg autorespond.InboundMessage) error
}

// HandlerOptions wires the webhook handlers. PublicBaseURL, when set, replaces the
// request's scheme and host in the URL used for Twilio signature checks.
type HandlerOptions struct {
	Inbound           Inbound
	TwilioAuthToken   string
	PublicBaseURL     string
	EmailWebhookToken string
	Logger            *logging.Logger
	Metrics           *metrics.AutoRespondMetrics
	Now               func() time.Time
}

// Handler serves the provider webhooks.
type Handler struct {
	inbound       Inbound
	twilioToken   string
	publicBaseURL string
	emailToken    string
	logger        *logging.Logger
	metrics       *metrics.AutoRespondMetrics
	now           func() time.Time
}

func NewHandler(opts HandlerOptions) *Handler {
	if opts.Inbound == nil {
		panic("messaging: inbound processor cannot be nil")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		inbound:       opts.Inbound,
		twilioToken:   opts.TwilioAuthToken,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		emailToken:    opts.EmailWebhookToken,
		logger:        logging.OrDefault(opts.Logger),
		metrics:       opts.Metrics,
		now:           now,
	}
}

// TwilioWebhook handles POST /webhooks/twilio/sms.
func (h *Handler) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := webhookTracer.Start(r.Context(), "messaging.twilio.webhook")
	defer span.End()

	if h.twilioToken != "" && !ValidateTwilioSignature(r, h.twilioToken, h.webhookURL(r)) {
		h.logger.Warn("invalid twilio signature")
		h.metrics.ObserveInbound(string(autorespond.ChannelSMS), "unauthorized")
		span.RecordError(errors.New("invalid twilio signature"))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	webhook, err := ParseTwilioWebhook(r)
	if err != nil {
		h.reject(w, span, autorespond.ChannelSMS, err)
		return
	}
	msg := autorespond.InboundMessage{
		Channel:    autorespond.ChannelSMS,
		From:       NormalizeE164(webhook.From),
		To:         NormalizeE164(webhook.To),
		Body:       webhook.Body,
		MessageID:  webhook.MessageSid,
		AccountID:  webhook.AccountSid,
		ReceivedAt: h.now().UTC(),
	}
	span.SetAttributes(
		attribute.String("autorespond.twilio.message_sid", webhook.MessageSid),
		attribute.String("autorespond.from", msg.From),
	)
	if err := msg.Validate(); err != nil {
		h.reject(w, span, autorespond.ChannelSMS, err)
		return
	}

	if !h.accept(ctx, w, span, msg) {
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyTwiML))
}

// EmailWebhook handles POST /webhooks/email/inbound.
func (h *Handler) EmailWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := webhookTracer.Start(r.Context(), "messaging.email.webhook")
	defer span.End()

	if h.emailToken != "" && !tokensEqual(r.URL.Query().Get("token"), h.emailToken) {
		h.logger.Warn("invalid inbound email token")
		h.metrics.ObserveInbound(string(autorespond.ChannelEmail), "unauthorized")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	email, err := ParseInboundEmail(r)
	if err != nil {
		h.reject(w, span, autorespond.ChannelEmail, err)
		return
	}
	msg := autorespond.InboundMessage{
		Channel:    autorespond.ChannelEmail,
		From:       email.From,
		To:         email.To,
		Subject:    email.Subject,
		Body:       email.Text,
		MessageID:  email.MessageID,
		ReceivedAt: h.now().UTC(),
	}
	span.SetAttributes(attribute.String("autorespond.from", msg.From))
	if err := msg.Validate(); err != nil {
		h.reject(w, span, autorespond.ChannelEmail, err)
		return
	}

	if !h.accept(ctx, w, span, msg) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Handler) accept(ctx context.Context, w http.ResponseWriter, span trace.Span, msg autorespond.InboundMessage) bool {
	if err := h.inbound.Handle(ctx, msg); err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrBusy) {
			h.metrics.ObserveInbound(string(msg.Channel), "busy")
			h.logger.Warn("inbound queue full", "channel", msg.Channel, "message_id", msg.MessageID)
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return false
		}
		h.metrics.ObserveInbound(string(msg.Channel), "error")
		h.logger.Error("failed to handle inbound message", "error", err, "channel", msg.Channel)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *Handler) reject(w http.ResponseWriter, span trace.Span, channel autorespond.Channel, err error) {
	h.logger.Warn("rejected inbound webhook", "channel", channel, "error", err)
	h.metrics.ObserveInbound(string(channel), "rejected")
	span.RecordError(err)
	http.Error(w, "Bad Request", http.StatusBadRequest)
}

// webhookURL is the URL Twilio signed: the configured public base plus the request
// path, or the request's own forwarded scheme and host.
func (h *Handler) webhookURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL + r.URL.RequestURI()
	}
	return buildAbsoluteURL(r)
}

func buildAbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
