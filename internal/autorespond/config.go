package autorespond

import "fmt"

// BusinessHours is a daily [Start, End) window in HH:MM, evaluated in Timezone.
type BusinessHours struct {
	Start    string
	End      string
	Timezone string
}

// Config is the effect-bearing policy surface. It is read once at startup.
type Config struct {
	Enabled              bool
	ConfidenceThreshold  float64
	MaxResponseLength    int
	BusinessHoursOnly    bool
	BusinessHours        BusinessHours
	ExcludedKeywords     []string
	ExcludedDomains      []string
	AutoRespondAddresses []string
}

// Validate catches configuration that would make every decision meaningless.
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("autorespond: confidence threshold %v outside [0,1]", c.ConfidenceThreshold)
	}
	if c.MaxResponseLength < 0 {
		return fmt.Errorf("autorespond: max response length must not be negative")
	}
	if c.BusinessHoursOnly {
		if _, err := ParseBusinessHours(c.BusinessHours); err != nil {
			return err
		}
	}
	return nil
}
