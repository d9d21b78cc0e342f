package booking

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/autorespond/internal/notify"
	"github.com/wolfman30/autorespond/pkg/logging"
)

// HandoffNotifier emails the front desk when a client finishes the dialogue, so staff
// can put the request on the real calendar.
type HandoffNotifier struct {
	sender       notify.EmailSender
	to           string
	businessName string
	logger       *logging.Logger
}

// NewHandoffNotifier returns nil when there is no sender or recipient, which the
// Machine treats as "no notifier".
func NewHandoffNotifier(sender notify.EmailSender, to, businessName string, logger *logging.Logger) *HandoffNotifier {
	if sender == nil || strings.TrimSpace(to) == "" {
		return nil
	}
	return &HandoffNotifier{
		sender:       sender,
		to:           strings.TrimSpace(to),
		businessName: businessName,
		logger:       logging.OrDefault(logger),
	}
}

func (h *HandoffNotifier) BookingRequested(ctx context.Context, state ConversationState) error {
	if h == nil {
		return nil
	}
	subject := fmt.Sprintf("New booking request: %s %s at %s", valueOrNA(state.Service), valueOrNA(state.Date), valueOrNA(state.Time))
	err := h.sender.Send(ctx, notify.EmailMessage{
		To:      h.to,
		Subject: subject,
		Body:    FormatRequestSummary(state),
		HTML:    FormatRequestSummaryHTML(state, h.businessName),
	})
	if err != nil {
		return fmt.Errorf("booking: handoff email: %w", err)
	}
	h.logger.Info("booking handoff sent", "sender", state.Sender, "to", h.to)
	return nil
}

// FormatRequestSummary renders a plain-text summary of a completed dialogue.
func FormatRequestSummary(state ConversationState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Client phone: %s\n", valueOrNA(state.Sender))
	fmt.Fprintf(&b, "Service: %s\n", valueOrNA(state.Service))
	fmt.Fprintf(&b, "Day: %s\n", valueOrNA(state.Date))
	fmt.Fprintf(&b, "Time: %s\n", valueOrNA(state.Time))
	fmt.Fprintf(&b, "Requested: %s\n", state.UpdatedAt.Format(time.RFC1123))
	return b.String()
}

// FormatRequestSummaryHTML renders the same summary as an HTML table.
func FormatRequestSummaryHTML(state ConversationState, businessName string) string {
	row := func(label, value string) string {
		return fmt.Sprintf(`<tr><td style="padding:6px 12px;font-weight:bold;">%s</td><td style="padding:6px 12px;">%s</td></tr>`,
			label, html.EscapeString(valueOrNA(value)))
	}
	title := "New Booking Request"
	if businessName != "" {
		title += " for " + html.EscapeString(businessName)
	}
	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:600px;">
<h2 style="color:#333;">%s</h2>
<table style="border-collapse:collapse;width:100%%;">
%s
%s
%s
%s
%s
</table>
<p style="color:#666;font-size:12px;">Collected by text message. Please confirm the appointment with the client.</p>
</div>`,
		title,
		row("Client phone", state.Sender),
		row("Service", state.Service),
		row("Day", state.Date),
		row("Time", state.Time),
		row("Requested", state.UpdatedAt.Format(time.RFC1123)),
	)
}

func valueOrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
