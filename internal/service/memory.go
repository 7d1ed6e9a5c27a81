package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aspire-solutions/councilkb/internal/domain"
)

// MemoryRepository defines the persistence interface for rolling summaries.
type MemoryRepository interface {
	Get(ctx context.Context, tenantID, sessionID string) (*domain.ConversationSummary, error)
	Put(ctx context.Context, summary *domain.ConversationSummary) error
}

// Summarizer produces a compact digest from a summarization prompt.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// MemoryConfig gates memory side effects. Writes are off by default and
// fail-open when enabled, so the primary retrieval answer never depends on
// the memory store.
//
// FailClosed makes Update return the store error instead of swallowing it.
// The retrieval path and the background dispatcher log Update errors and
// carry on regardless, so the flag matters only to callers that invoke
// Update directly and must observe write loss, such as batch backfills.
type MemoryConfig struct {
	WritesEnabled bool
	FailClosed    bool
	MaxChars      int
}

// DefaultMemoryConfig provides the shipping defaults.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		WritesEnabled: false,
		FailClosed:    false,
		MaxChars:      600,
	}
}

// MemoryService reads and updates per-session rolling summaries.
type MemoryService struct {
	repo       MemoryRepository
	summarizer Summarizer
	cfg        MemoryConfig
	now        func() time.Time
}

// NewMemoryService creates a new MemoryService instance
func NewMemoryService(repo MemoryRepository, summarizer Summarizer, cfg MemoryConfig) *MemoryService {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMemoryConfig().MaxChars
	}
	return &MemoryService{
		repo:       repo,
		summarizer: summarizer,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Read returns the prior summary for a session, or "" on any failure.
// Retrieval must keep working without memory.
func (s *MemoryService) Read(ctx context.Context, tenantID, sessionID string) string {
	if s == nil || s.repo == nil || tenantID == "" || sessionID == "" {
		return ""
	}

	summary, err := s.repo.Get(ctx, tenantID, sessionID)
	if err != nil || summary == nil {
		return ""
	}
	return summary.Summary
}

// Update produces a new rolling summary from the prior one plus the latest
// exchange and overwrites the stored row. Summarizer failure is a non-fatal
// write-skip; a store failure raises only under fail-closed configuration.
func (s *MemoryService) Update(ctx context.Context, tenantID, sessionID, previous, userMessage, answerSnippet string) error {
	if s == nil || !s.cfg.WritesEnabled || s.repo == nil {
		return nil
	}
	if tenantID == "" || sessionID == "" {
		return nil
	}

	next := s.summarize(ctx, previous, userMessage, answerSnippet)
	if next == "" {
		return nil
	}
	if len(next) > s.cfg.MaxChars {
		next = next[:s.cfg.MaxChars]
	}

	record := &domain.ConversationSummary{
		TenantID:  tenantID,
		SessionID: sessionID,
		Summary:   next,
		UpdatedAt: s.now(),
	}
	if err := domain.ValidateConversationSummary(record); err != nil {
		return nil
	}

	if err := s.repo.Put(ctx, record); err != nil {
		if s.cfg.FailClosed {
			return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "memory write failed", err)
		}
		log.Printf("memory write skipped (fail-open): %v", err)
		return nil
	}
	return nil
}

func (s *MemoryService) summarize(ctx context.Context, previous, userMessage, answerSnippet string) string {
	if s.summarizer == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Update a rolling summary of a resident's conversation with a council assistant. Keep it under %d characters, single paragraph, facts only.\n\n", s.cfg.MaxChars)
	if strings.TrimSpace(previous) != "" {
		fmt.Fprintf(&b, "Previous summary: %s\n", previous)
	}
	fmt.Fprintf(&b, "Latest resident message: %s\n", userMessage)
	if strings.TrimSpace(answerSnippet) != "" {
		fmt.Fprintf(&b, "Latest assistant answer: %s\n", answerSnippet)
	}

	next, err := s.summarizer.Summarize(ctx, b.String())
	if err != nil {
		log.Printf("memory summarize skipped: %v", err)
		return ""
	}
	return strings.TrimSpace(next)
}
