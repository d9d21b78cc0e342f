package catalog

import (
	"fmt"
	"strings"
)

// Service is a bookable offering.
type Service struct {
	Name            string  `yaml:"name" json:"name"`
	Price           float64 `yaml:"price" json:"price"`
	DurationMinutes int     `yaml:"duration_minutes" json:"duration_minutes"`
	Description     string  `yaml:"description" json:"description,omitempty"`
}

// PriceLabel formats the price the way replies quote it ("$99").
func (s Service) PriceLabel() string {
	if s.Price == float64(int64(s.Price)) {
		return fmt.Sprintf("$%d", int64(s.Price))
	}
	return fmt.Sprintf("$%.2f", s.Price)
}

// Staff is a team member clients may ask about.
type Staff struct {
	Name  string `yaml:"name" json:"name"`
	Title string `yaml:"title" json:"title"`
	Bio   string `yaml:"bio" json:"bio,omitempty"`
}

// FAQ is a canned question and answer fed to the knowledge corpus.
type FAQ struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Settings describe the business itself.
type Settings struct {
	BusinessName string `yaml:"name" json:"name"`
	BusinessType string `yaml:"type" json:"type"`
	Phone        string `yaml:"phone" json:"phone,omitempty"`
	Email        string `yaml:"email" json:"email,omitempty"`
	Address      string `yaml:"address" json:"address,omitempty"`
	Hours        string `yaml:"hours" json:"hours,omitempty"`
	Timezone     string `yaml:"timezone" json:"timezone,omitempty"`
}

// Profile is everything the responder knows about one business.
type Profile struct {
	Business  Settings  `yaml:"business"`
	Services  []Service `yaml:"services"`
	Staff     []Staff   `yaml:"staff"`
	FAQs      []FAQ     `yaml:"faqs"`
	Knowledge string    `yaml:"knowledge"`
}

// KnowledgeText renders the free-form corpus, appending FAQs.
func (p Profile) KnowledgeText() string {
	var b strings.Builder
	if k := strings.TrimSpace(p.Knowledge); k != "" {
		b.WriteString(k)
	}
	for _, faq := range p.FAQs {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s", strings.TrimSpace(faq.Question), strings.TrimSpace(faq.Answer))
	}
	return b.String()
}

// DefaultProfile is the demo business used when no catalog file or database is configured.
func DefaultProfile() Profile {
	return Profile{
		Business: Settings{
			BusinessName: "Glo Head Spa",
			BusinessType: "head spa",
			Phone:        "(918) 727-7348",
			Hours:        "Monday-Saturday 9AM-7PM, Sunday 10AM-5PM",
			Timezone:     "America/Chicago",
		},
		Services: []Service{
			{Name: "Signature Head Spa", Price: 99, DurationMinutes: 60, Description: "Scalp analysis, deep cleanse, and relaxing head massage."},
			{Name: "Deluxe Head Spa", Price: 160, DurationMinutes: 90, Description: "Signature treatment plus hair mask and extended massage."},
			{Name: "Platinum Head Spa", Price: 220, DurationMinutes: 120, Description: "Our most complete scalp and hair ritual."},
			{Name: "Korean Glass Skin Facial", Price: 130, DurationMinutes: 60, Description: "Hydrating multi-step facial for a dewy finish."},
			{Name: "Buccal Massage Facial", Price: 190, DurationMinutes: 90, Description: "Intra-oral sculpting massage for facial tension."},
		},
		Staff: []Staff{
			{Name: "Sarah Johnson", Title: "Lead Head Spa Therapist", Bio: "Over 10 years of scalp and hair care experience."},
			{Name: "Michael Chen", Title: "Esthetician", Bio: "Licensed esthetician focused on facial treatments."},
		},
		FAQs: []FAQ{
			{Question: "How do I book an appointment?", Answer: "Text this number with the service, day, and time you'd like, or call us."},
			{Question: "What is your cancellation policy?", Answer: "We ask for 24 hours notice. Late cancellations may be charged 50% of the service price."},
			{Question: "What forms of payment do you accept?", Answer: "All major credit and debit cards, cash, Apple Pay and Google Pay."},
		},
	}
}
