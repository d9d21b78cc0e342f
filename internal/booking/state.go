// Package booking runs the SMS appointment dialogue: pick a service, a day, then a time.
package booking

import "time"

// Phase is where a sender is in the dialogue.
type Phase string

const (
	PhaseStart    Phase = "start"
	PhaseService  Phase = "service"
	PhaseDate     Phase = "date"
	PhaseTime     Phase = "time"
	PhaseComplete Phase = "complete"
)

// Known reports whether p is one of the defined phases.
func (p Phase) Known() bool {
	switch p {
	case PhaseStart, PhaseService, PhaseDate, PhaseTime, PhaseComplete:
		return true
	}
	return false
}

// ConversationState is the per-sender dialogue record.
type ConversationState struct {
	Sender      string    `json:"sender"`
	Phase       Phase     `json:"phase"`
	Service     string    `json:"service,omitempty"`
	Date        string    `json:"date,omitempty"`
	Time        string    `json:"time,omitempty"`
	LastMessage string    `json:"last_message,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newState(sender string) ConversationState {
	return ConversationState{Sender: sender, Phase: PhaseStart}
}

// clearSlots drops any partial booking.
func (s *ConversationState) clearSlots() {
	s.Service = ""
	s.Date = ""
	s.Time = ""
}
