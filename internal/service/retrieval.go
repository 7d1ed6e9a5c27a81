package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/aspire-solutions/councilkb/internal/domain"
)

// ChunkSearchResult is one ranked row from the similarity search.
type ChunkSearchResult struct {
	Content    string
	Section    domain.Section
	Source     string
	Priority   int
	ChunkIndex int
	Distance   float32
}

// SearchChunkRepository defines the similarity-search interface. Every search
// is scoped to one tenant; returning another tenant's rows is a correctness
// violation, not a ranking problem.
type SearchChunkRepository interface {
	SearchSimilar(ctx context.Context, tenantID string, embedding []float32, topK int) ([]*ChunkSearchResult, error)
}

// QueryEmbedder generates the query vector.
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// RetrievalMemory is the slice of the memory service retrieval needs.
type RetrievalMemory interface {
	Read(ctx context.Context, tenantID, sessionID string) string
	Update(ctx context.Context, tenantID, sessionID, previous, userMessage, answerSnippet string) error
}

// MemoryUpdate is one pending rolling-summary write.
type MemoryUpdate struct {
	TenantID      string
	SessionID     string
	Previous      string
	UserMessage   string
	AnswerSnippet string
}

// MemoryDispatcher hands memory writes to a detached worker so the primary
// answer never waits on them. Enqueue returns false when the write was
// dropped.
type MemoryDispatcher interface {
	Enqueue(update MemoryUpdate) bool
}

// RetrievalConfig bounds the assembled answer.
type RetrievalConfig struct {
	TopK            int
	SnippetMaxChars int
	AnswerMaxChars  int
}

// DefaultRetrievalConfig provides sane defaults for answer assembly.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:            5,
		SnippetMaxChars: 220,
		AnswerMaxChars:  900,
	}
}

// RetrievalService answers one tool call: resolve tenant, extract query,
// read memory, embed, search, format, write memory. State-free per request;
// every external call is attempted exactly once.
type RetrievalService struct {
	resolver   *TenantResolver
	embedder   QueryEmbedder
	repo       SearchChunkRepository
	memory     RetrievalMemory
	dispatcher MemoryDispatcher
	cfg        RetrievalConfig
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(resolver *TenantResolver, embedder QueryEmbedder, repo SearchChunkRepository, cfg RetrievalConfig) *RetrievalService {
	if cfg.TopK <= 0 {
		cfg = DefaultRetrievalConfig()
	}
	return &RetrievalService{
		resolver: resolver,
		embedder: embedder,
		repo:     repo,
		cfg:      cfg,
	}
}

// WithMemory attaches the conversational memory store.
func (s *RetrievalService) WithMemory(memory RetrievalMemory) *RetrievalService {
	s.memory = memory
	return s
}

// WithDispatcher attaches a detached memory-write dispatcher.
func (s *RetrievalService) WithDispatcher(dispatcher MemoryDispatcher) *RetrievalService {
	s.dispatcher = dispatcher
	return s
}

// Answer produces the single-line result string for a tool call.
func (s *RetrievalService) Answer(ctx context.Context, req *ToolRequest, routeTenant string) (string, error) {
	tenant, err := s.resolver.Resolve(req, routeTenant)
	if err != nil {
		return "", err
	}

	query, err := ExtractQuery(req)
	if err != nil {
		return "", err
	}

	session := req.Session()
	var prior string
	if s.memory != nil {
		prior = s.memory.Read(ctx, tenant, session)
	}

	embedInput := query
	if prior != "" {
		embedInput = prior + "\n" + query
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, embedInput)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "query embedding failed", err)
	}

	rows, err := s.repo.SearchSimilar(ctx, tenant, embedding, s.cfg.TopK)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "similarity search failed", err)
	}

	answer := s.formatAnswer(tenant, rows)

	s.writeMemory(ctx, tenant, session, prior, query, answer)

	return answer, nil
}

// formatAnswer assembles the bounded single-line response. Zero rows produce
// an explicit no-match line rather than an empty string.
func (s *RetrievalService) formatAnswer(tenant string, rows []*ChunkSearchResult) string {
	if len(rows) == 0 {
		return fmt.Sprintf("tenant=%s | no_match | no knowledge found for this query", tenant)
	}

	sorted := make([]*ChunkSearchResult, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Distance != sorted[j].Distance {
			return sorted[i].Distance < sorted[j].Distance
		}
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].ChunkIndex < sorted[j].ChunkIndex
	})

	var b strings.Builder
	fmt.Fprintf(&b, "tenant=%s | matches=%d |", tenant, len(sorted))
	for i, row := range sorted {
		entry := fmt.Sprintf(" %d) [%s] %s", i+1, row.Section, flatten(row.Content, s.cfg.SnippetMaxChars))
		if b.Len()+len(entry) > s.cfg.AnswerMaxChars {
			break
		}
		b.WriteString(entry)
	}

	return flatten(b.String(), s.cfg.AnswerMaxChars)
}

func (s *RetrievalService) writeMemory(ctx context.Context, tenant, session, prior, query, answer string) {
	if s.memory == nil || session == "" {
		return
	}

	snippet := flatten(answer, 200)
	if s.dispatcher != nil {
		if !s.dispatcher.Enqueue(MemoryUpdate{
			TenantID:      tenant,
			SessionID:     session,
			Previous:      prior,
			UserMessage:   query,
			AnswerSnippet: snippet,
		}) {
			log.Printf("memory write dropped: dispatcher queue full")
		}
		return
	}

	// The answer has already been assembled; a failed write is logged, never
	// surfaced to the caller. Fail-closed memory stores change what Update
	// returns here, not what the tool caller sees.
	if err := s.memory.Update(ctx, tenant, session, prior, query, snippet); err != nil {
		log.Printf("memory write failed: %v", err)
	}
}

// flatten collapses a string to a single whitespace-normalized line capped at
// maxChars runes. Downstream consumers require flat strings with no newlines.
// Truncation lands on a rune boundary so snippets stay valid UTF-8.
func flatten(text string, maxChars int) string {
	clean := strings.Join(strings.Fields(text), " ")
	if maxChars <= 0 {
		return clean
	}
	runes := []rune(clean)
	if len(runes) <= maxChars {
		return clean
	}
	if maxChars <= 3 {
		return string(runes[:maxChars])
	}
	return string(runes[:maxChars-3]) + "..."
}
