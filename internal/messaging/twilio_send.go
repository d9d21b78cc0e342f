package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/autorespond/internal/autorespond"
	"github.com/wolfman30/autorespond/pkg/logging"
)

var twilioSendTracer = otel.Tracer("autorespond.internal.messaging.twilio_send")

const (
	defaultTwilioAPIBase = "https://api.twilio.com"
	twilioMaxAttempts    = 3
)

// TwilioSender posts SMS messages using Twilio's REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	apiBase    string
	httpClient *http.Client
	logger     *logging.Logger
	backoff    func(attempt int) time.Duration
}

func NewTwilioSender(accountSID, authToken, defaultFrom string, logger *logging.Logger) *TwilioSender {
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       defaultFrom,
		apiBase:    defaultTwilioAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.OrDefault(logger),
		backoff: func(int) time.Duration {
			return time.Duration(200+rand.Intn(300)) * time.Millisecond
		},
	}
}

var _ autorespond.SMSTransport = (*TwilioSender)(nil)

// SendSMS dispatches a single SMS, retrying network errors, 429s and 5xx.
// On success the Twilio message sid is written to msg.Metadata when present.
func (s *TwilioSender) SendSMS(ctx context.Context, msg autorespond.OutboundSMS) error {
	if s.accountSID == "" || s.authToken == "" {
		return errors.New("messaging: twilio credentials missing")
	}
	if msg.To == "" {
		return errors.New("messaging: to required")
	}
	if msg.From == "" {
		msg.From = s.from
	}
	if msg.From == "" {
		return errors.New("messaging: from required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return errors.New("messaging: body required")
	}

	ctx, span := twilioSendTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(attribute.String("autorespond.to", msg.To))

	payload := url.Values{}
	payload.Set("To", msg.To)
	payload.Set("From", msg.From)
	payload.Set("Body", msg.Body)
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.apiBase, s.accountSID)

	var lastErr error
	for attempt := 1; attempt <= twilioMaxAttempts; attempt++ {
		retry, err := s.post(ctx, endpoint, payload, msg.Metadata)
		if err == nil {
			s.logger.Info("twilio sms sent", "to", msg.To, "attempt", attempt)
			return nil
		}
		lastErr = err
		if !retry || attempt == twilioMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = errors.Join(lastErr, ctx.Err())
			attempt = twilioMaxAttempts
		case <-time.After(s.backoff(attempt)):
		}
	}
	span.RecordError(lastErr)
	return lastErr
}

// post makes one attempt. retry reports whether the failure is worth another try.
func (s *TwilioSender) post(ctx context.Context, endpoint string, payload url.Values, metadata map[string]string) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return false, err
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("messaging: twilio request: %w", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if metadata != nil && len(body) > 0 {
			var parsed struct {
				SID    string `json:"sid"`
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &parsed); err == nil {
				if parsed.SID != "" {
					metadata["provider_message_id"] = parsed.SID
				}
				if parsed.Status != "" {
					metadata["provider_status"] = parsed.Status
				}
			}
		}
		return false, nil
	}
	err = fmt.Errorf("messaging: twilio send failed: %s", formatTwilioError(resp.StatusCode, body))
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, err
}

type twilioAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}

// StubSMSSender logs instead of sending. Used when Twilio is not configured.
type StubSMSSender struct {
	logger *logging.Logger
}

func NewStubSMSSender(logger *logging.Logger) *StubSMSSender {
	return &StubSMSSender{logger: logging.OrDefault(logger)}
}

func (s *StubSMSSender) SendSMS(_ context.Context, msg autorespond.OutboundSMS) error {
	s.logger.Info("stub sms sender: message not sent", "to", msg.To, "from", msg.From, "body_len", len(msg.Body))
	return nil
}
