package clients

import (
	"strings"
	"time"
)

// Preferences are the per-client opt-in flags consulted before any automated reply.
type Preferences struct {
	AutoRespond bool `json:"auto_respond"`
	SMSOptIn    bool `json:"sms_opt_in"`
	EmailOptIn  bool `json:"email_opt_in"`
}

// DefaultPreferences opts a new client into everything.
func DefaultPreferences() Preferences {
	return Preferences{AutoRespond: true, SMSOptIn: true, EmailOptIn: true}
}

// Client is a customer known to the business.
type Client struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Name         string      `json:"name"`
	Email        string      `json:"email,omitempty"`
	Phone        string      `json:"phone,omitempty"`
	PasswordHash string      `json:"-"`
	Placeholder  bool        `json:"placeholder"`
	Preferences  Preferences `json:"preferences"`
	CreatedAt    time.Time   `json:"created_at"`
}

// DisplayName returns the best human name available for greetings.
func (c *Client) DisplayName() string {
	if c == nil {
		return ""
	}
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return ""
}

// NewClient carries the fields required to create a client record.
type NewClient struct {
	Username     string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Placeholder  bool
	Preferences  Preferences
}

// Validate ensures the record can be found again by at least one address.
func (n *NewClient) Validate() error {
	if n == nil {
		return ErrInvalidClient
	}
	if strings.TrimSpace(n.Username) == "" {
		return ErrUsernameRequired
	}
	if strings.TrimSpace(n.Email) == "" && strings.TrimSpace(n.Phone) == "" {
		return ErrAddressRequired
	}
	return nil
}

// NormalizeEmail lowercases and trims an email so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
