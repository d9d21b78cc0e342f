package autorespond

import (
	"strings"
	"time"

	"github.com/wolfman30/autorespond/internal/clients"
)

// Gate decides whether an automatic reply may be attempted. It performs no I/O;
// the clock is injected so identical inputs give identical decisions.
type Gate struct {
	now func() time.Time
}

func NewGate(now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{now: now}
}

// Evaluate runs the checks in order and stops at the first rejection. A nil client
// skips the opt-out check, which CheckClient applies once the sender is resolved.
func (g *Gate) Evaluate(msg InboundMessage, client *clients.Client, cfg Config) EligibilityDecision {
	if !cfg.Enabled {
		return reject(ReasonDisabled)
	}
	if cfg.BusinessHoursOnly && !g.withinBusinessHours(cfg.BusinessHours) {
		return reject(ReasonOutsideBusinessHours)
	}
	if containsAny(msg.Subject+"\n"+msg.Body, cfg.ExcludedKeywords) {
		return reject(ReasonExcludedKeyword)
	}
	// Matched against the whole address so both example.com and noreply@ entries work.
	if msg.Channel == ChannelEmail && containsAny(msg.From, cfg.ExcludedDomains) {
		return reject(ReasonExcludedDomain)
	}
	if msg.Channel == ChannelEmail && !recipientAuthorized(msg.To, cfg.AutoRespondAddresses) {
		return reject(ReasonNotAuthorizedRecipient)
	}
	return g.CheckClient(client)
}

// CheckClient rejects senders who turned automatic replies off.
func (g *Gate) CheckClient(client *clients.Client) EligibilityDecision {
	if client != nil && !client.Preferences.AutoRespond {
		return reject(ReasonClientOptedOut)
	}
	return allow()
}

// An unparseable window fails closed: nothing is inside it.
func (g *Gate) withinBusinessHours(h BusinessHours) bool {
	window, err := ParseBusinessHours(h)
	if err != nil {
		return false
	}
	return window.Contains(g.now())
}

func containsAny(text string, needles []string) bool {
	text = strings.ToLower(text)
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// An empty allow-list authorizes every recipient.
func recipientAuthorized(recipient string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	recipient = strings.ToLower(strings.TrimSpace(recipient))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimSpace(a)) == recipient {
			return true
		}
	}
	return false
}
