package autorespond

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/autorespond/internal/clients"
)

func TestGateDisabledAlwaysRejects(t *testing.T) {
	gate := NewGate(fixedClock)
	cfg := baseConfig()
	cfg.Enabled = false

	for _, msg := range []InboundMessage{
		smsMessage("hi"),
		smsMessage("URGENT refund please"),
		emailMessage("Hello", "From a noreply sender"),
	} {
		d := gate.Evaluate(msg, nil, cfg)
		assert.False(t, d.ShouldRespond)
		assert.Equal(t, ReasonDisabled, d.Reason)
	}
}

func TestGateExcludedKeyword(t *testing.T) {
	gate := NewGate(fixedClock)
	cfg := baseConfig()

	d := gate.Evaluate(smsMessage("I need a REFUND for yesterday"), nil, cfg)
	assert.Equal(t, EligibilityDecision{Reason: ReasonExcludedKeyword}, d)

	d = gate.Evaluate(emailMessage("Urgent question", "when are you open?"), nil, cfg)
	assert.Equal(t, ReasonExcludedKeyword, d.Reason)
}

func TestGateBusinessHours(t *testing.T) {
	cfg := baseConfig()
	cfg.BusinessHoursOnly = true
	cfg.BusinessHours = BusinessHours{Start: "09:00", End: "17:00", Timezone: "America/Chicago"}

	// 15:30 UTC in March is 10:30 CDT.
	inside := NewGate(fixedClock)
	assert.True(t, inside.Evaluate(smsMessage("hi"), nil, cfg).ShouldRespond)

	atClose := NewGate(func() time.Time { return time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC) })
	d := atClose.Evaluate(smsMessage("hi"), nil, cfg)
	assert.Equal(t, ReasonOutsideBusinessHours, d.Reason)

	cfg.BusinessHours = BusinessHours{Start: "22:00", End: "06:00", Timezone: "UTC"}
	overnight := NewGate(func() time.Time { return time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC) })
	assert.True(t, overnight.Evaluate(smsMessage("hi"), nil, cfg).ShouldRespond)
	assert.Equal(t, ReasonOutsideBusinessHours, inside.Evaluate(smsMessage("hi"), nil, cfg).Reason)

	cfg.BusinessHours = BusinessHours{Start: "9am", End: "17:00"}
	assert.Equal(t, ReasonOutsideBusinessHours, inside.Evaluate(smsMessage("hi"), nil, cfg).Reason)
}

func TestGateExcludedDomainEmailOnly(t *testing.T) {
	gate := NewGate(fixedClock)
	cfg := baseConfig()

	msg := emailMessage("Your receipt", "Thanks for your order")
	msg.From = "NoReply@shop.example"
	assert.Equal(t, ReasonExcludedDomain, gate.Evaluate(msg, nil, cfg).Reason)

	sms := smsMessage("hi")
	sms.From = "noreply"
	assert.True(t, gate.Evaluate(sms, nil, cfg).ShouldRespond)
}

func TestGateAuthorizedRecipients(t *testing.T) {
	gate := NewGate(fixedClock)
	cfg := baseConfig()
	cfg.AutoRespondAddresses = []string{"Hello@Glo.example"}

	assert.True(t, gate.Evaluate(emailMessage("Hours", "when are you open"), nil, cfg).ShouldRespond)

	other := emailMessage("Hours", "when are you open")
	other.To = "billing@glo.example"
	assert.Equal(t, ReasonNotAuthorizedRecipient, gate.Evaluate(other, nil, cfg).Reason)

	sms := smsMessage("hi")
	assert.True(t, gate.Evaluate(sms, nil, cfg).ShouldRespond, "sms recipients are not subject to the email allow-list")
}

func TestGateClientOptOut(t *testing.T) {
	gate := NewGate(fixedClock)
	client := &clients.Client{ID: "c1", Preferences: clients.Preferences{AutoRespond: false}}
	assert.Equal(t, ReasonClientOptedOut, gate.Evaluate(smsMessage("hi"), client, baseConfig()).Reason)

	client.Preferences.AutoRespond = true
	assert.True(t, gate.Evaluate(smsMessage("hi"), client, baseConfig()).ShouldRespond)
}

func TestGateCheckClient(t *testing.T) {
	gate := NewGate(fixedClock)
	assert.True(t, gate.CheckClient(nil).ShouldRespond)
	assert.Equal(t, ReasonClientOptedOut, gate.CheckClient(&clients.Client{}).Reason)
	assert.True(t, gate.CheckClient(&clients.Client{Preferences: clients.DefaultPreferences()}).ShouldRespond)
}

func TestGateOrderAndIdempotence(t *testing.T) {
	gate := NewGate(fixedClock)
	cfg := baseConfig()
	cfg.AutoRespondAddresses = []string{"someone-else@glo.example"}

	msg := emailMessage("complaint", "body")
	msg.From = "noreply@shop.example"
	first := gate.Evaluate(msg, nil, cfg)
	second := gate.Evaluate(msg, nil, cfg)
	assert.Equal(t, ReasonExcludedKeyword, first.Reason)
	assert.Equal(t, first, second)
}

func TestConfigValidate(t *testing.T) {
	cfg := baseConfig()
	assert.NoError(t, cfg.Validate())

	cfg.ConfidenceThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = baseConfig()
	cfg.BusinessHoursOnly = true
	cfg.BusinessHours = BusinessHours{Start: "09:00", End: "17:00", Timezone: "Mars/Olympus"}
	assert.Error(t, cfg.Validate())
}
