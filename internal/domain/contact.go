package domain

import (
	"fmt"
	"strings"
	"time"
)

// ContactSubmission is a stored website contact-form entry.
type ContactSubmission struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Message   string
	Status    string
	CreatedAt time.Time
}

// CouncilRequest is a structured service request produced by the voice
// agent's send_structured_email tool.
type CouncilRequest struct {
	Subject         string
	RequestType     string
	ResidentName    string
	ResidentPhone   string
	ResidentEmail   string
	Address         string
	PreferredMethod string
	Urgency         string
	Details         string
	To              string
	ExtraMetadata   string
}

// ValidateContactSubmission validates a ContactSubmission instance.
func ValidateContactSubmission(c *ContactSubmission) error {
	if c == nil {
		return fmt.Errorf("contact submission cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("contact submission ID is required")
	}

	if c.Name == "" {
		return fmt.Errorf("contact submission Name is required")
	}

	if c.Email == "" || !strings.Contains(c.Email, "@") {
		return fmt.Errorf("contact submission Email is invalid")
	}

	if c.Message == "" {
		return fmt.Errorf("contact submission Message is required")
	}

	return nil
}

// ValidateCouncilRequest checks required fields and reports the missing ones.
func ValidateCouncilRequest(r *CouncilRequest) error {
	if r == nil {
		return fmt.Errorf("council request cannot be nil")
	}

	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"subject", r.Subject},
		{"request_type", r.RequestType},
		{"resident_name", r.ResidentName},
		{"resident_phone", r.ResidentPhone},
		{"address", r.Address},
		{"details", r.Details},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	return nil
}
