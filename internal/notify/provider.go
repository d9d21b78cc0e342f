package notify

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/wolfman30/autorespond/pkg/logging"
)

// ProviderConfig selects an email provider. Provider is "sendgrid", "ses", "stub" or "auto".
type ProviderConfig struct {
	Provider string
	SendGrid SendGridConfig
	SES      SESConfig
}

// BuildEmailSender picks the configured provider. In auto mode SendGrid wins over SES;
// with neither configured a stub sender is returned and the reason is logged.
func BuildEmailSender(cfg ProviderConfig, ses *sesv2.Client, logger *logging.Logger) EmailSender {
	logger = logging.OrDefault(logger)
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	sendgridSender := NewSendGridSender(cfg.SendGrid, logger)
	var sesSender *SESSender
	if ses != nil && cfg.SES.FromEmail != "" {
		sesSender = NewSESSender(ses, cfg.SES, logger)
	}

	switch provider {
	case "sendgrid":
		if sendgridSender != nil {
			return sendgridSender
		}
		logger.Warn("email provider sendgrid requested but SENDGRID_API_KEY missing; using stub")
	case "ses":
		if sesSender != nil {
			return sesSender
		}
		logger.Warn("email provider ses requested but SES client or from address missing; using stub")
	case "stub":
	default:
		if sendgridSender != nil {
			return sendgridSender
		}
		if sesSender != nil {
			return sesSender
		}
		logger.Warn("no email provider configured; using stub")
	}
	return NewStubEmailSender(logger)
}
