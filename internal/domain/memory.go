package domain

import (
	"fmt"
	"time"
)

// ConversationSummary is the rolling per-session memory digest.
// One row per (tenant, session); overwritten on each update, never appended.
// Lifecycle is owned by the calling conversation platform.
type ConversationSummary struct {
	TenantID  string
	SessionID string
	Summary   string
	UpdatedAt time.Time
}

// ValidateConversationSummary validates a ConversationSummary before a write.
func ValidateConversationSummary(s *ConversationSummary) error {
	if s == nil {
		return fmt.Errorf("conversation summary cannot be nil")
	}

	if s.TenantID == "" {
		return fmt.Errorf("conversation summary TenantID is required")
	}

	if s.SessionID == "" {
		return fmt.Errorf("conversation summary SessionID is required")
	}

	return nil
}
