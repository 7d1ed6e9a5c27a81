package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/aspire-solutions/councilkb/internal/domain"
)

// derivedSourceSuffix distinguishes derived lookup rows from prose chunks of
// the same document.
const derivedSourceSuffix = "#collection_days"

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// IngestChunkRepository defines the repository interface for the upsert writer
type IngestChunkRepository interface {
	UpsertChunks(ctx context.Context, chunks []domain.KnowledgeChunk) (int, error)
	DeactivateMissing(ctx context.Context, tenantID, source string, liveHashes []string) (int, error)
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Blocks      int
	Chunks      int
	Inserted    int
	Deactivated int
}

// IngestionService turns a raw tenant knowledge document into embedded,
// content-addressed chunk rows. One run per document; safe to re-run because
// the content hash is the idempotency key.
type IngestionService struct {
	client    EmbeddingClient
	repo      IngestChunkRepository
	chunkCfg  ChunkConfig
	batchSize int
	now       func() time.Time
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(client EmbeddingClient, repo IngestChunkRepository) *IngestionService {
	return &IngestionService{
		client:    client,
		repo:      repo,
		chunkCfg:  DefaultChunkConfig(),
		batchSize: 64,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// BuildChunks parses a document into pending chunk records without touching
// the network. A document with zero recognized heading blocks is fatal.
func (s *IngestionService) BuildChunks(tenantID, source, raw string) ([]domain.KnowledgeChunk, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, domain.ErrEmptyDocument
	}

	blocks := ParseHeadingBlocks(NormalizeDocument(raw))
	if len(blocks) == 0 {
		return nil, domain.ErrNoHeadingBlocks
	}

	createdAt := s.now()
	var chunks []domain.KnowledgeChunk

	for _, block := range blocks {
		section := ClassifySection(block.Heading)

		if strings.EqualFold(block.Heading, CollectionDaysHeading) {
			for _, day := range ParseCollectionDays(block.Body) {
				chunks = append(chunks, buildDerivedChunk(tenantID, source, block.Heading, day, createdAt))
			}
			continue
		}

		for i, text := range chunkBody(block.Body, s.chunkCfg) {
			// Heading prefix keeps standalone chunks self-describing.
			content := block.Heading + "\n" + text
			chunks = append(chunks, domain.KnowledgeChunk{
				TenantID:    tenantID,
				Source:      source,
				Section:     section,
				Kind:        domain.ChunkKindRAGBlock,
				Content:     content,
				Priority:    SectionPriority(block.Heading, section, domain.ChunkKindRAGBlock),
				ChunkIndex:  i,
				ContentHash: contentHash(tenantID, source, string(section), string(domain.ChunkKindRAGBlock), fmt.Sprintf("%s|%d", block.Heading, i), content),
				Metadata: map[string]string{
					"heading": block.Heading,
					"kind":    string(domain.ChunkKindRAGBlock),
				},
				Active:    true,
				CreatedAt: createdAt,
				UpdatedAt: createdAt,
			})
		}
	}

	for i := range chunks {
		if err := domain.ValidateKnowledgeChunk(&chunks[i]); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid chunk", err)
		}
	}

	return chunks, nil
}

// Ingest runs the full pipeline: parse, embed in bounded batches, upsert, and
// deactivate rows whose hashes no longer appear in the document. Any provider
// or datastore error aborts the run; prior writes stay valid because they are
// idempotent.
func (s *IngestionService) Ingest(ctx context.Context, tenantID, source, raw string) (*IngestResult, error) {
	chunks, err := s.BuildChunks(tenantID, source, raw)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{Chunks: len(chunks)}
	result.Blocks = len(ParseHeadingBlocks(NormalizeDocument(raw)))

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		embeddings, err := s.client.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "embedding batch failed", err)
		}
		if len(embeddings) != len(batch) {
			return nil, domain.NewDomainError(domain.ErrCodeUpstream, "embedding batch returned wrong count")
		}
		for i := range batch {
			batch[i].Embedding = embeddings[i]
		}

		inserted, err := s.repo.UpsertChunks(ctx, batch)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "chunk upsert failed", err)
		}
		result.Inserted += inserted
	}

	// Superseded rows (same logical position, changed content) go inactive so
	// stale text stops surfacing in search. Both the prose source and its
	// derived-fact source are swept every run, even when the new document
	// produced no chunks for one of them, so a removed heading block retires
	// its old rows instead of leaving them active.
	for src, hashes := range hashesBySource(source, chunks) {
		deactivated, err := s.repo.DeactivateMissing(ctx, tenantID, src, hashes)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "stale chunk deactivation failed", err)
		}
		result.Deactivated += deactivated
	}

	return result, nil
}

func buildDerivedChunk(tenantID, source, heading string, day domain.CollectionDay, createdAt time.Time) domain.KnowledgeChunk {
	derivedSource := source + derivedSourceSuffix
	section := domain.SectionWasteBins
	content := fmt.Sprintf(
		"Bin collection typical day for %s: %s. Place bins out by 6:00am on collection day.",
		day.Suburb, day.TypicalDay,
	)
	// Hash disambiguates on the fact identity, not document position, so
	// reordering the source list never duplicates rows.
	disambiguator := fmt.Sprintf("%s|%s|%s", day.Suburb, day.TypicalDay, day.Division)

	return domain.KnowledgeChunk{
		TenantID:    tenantID,
		Source:      derivedSource,
		Section:     section,
		Kind:        domain.ChunkKindDerivedLookup,
		Content:     content,
		Priority:    SectionPriority(heading, section, domain.ChunkKindDerivedLookup),
		ChunkIndex:  0,
		ContentHash: contentHash(tenantID, derivedSource, string(section), string(domain.ChunkKindDerivedLookup), disambiguator, content),
		Metadata: map[string]string{
			"heading":     heading,
			"kind":        string(domain.ChunkKindDerivedLookup),
			"suburb":      day.Suburb,
			"typical_day": day.TypicalDay,
			"division":    day.Division,
		},
		Active:    true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// contentHash fingerprints the full chunk identity tuple.
func contentHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// hashesBySource groups live content hashes by source. The prose source and
// its derived-fact companion are always present, with empty (non-nil) hash
// lists when the current document contributed nothing under them.
func hashesBySource(source string, chunks []domain.KnowledgeChunk) map[string][]string {
	out := map[string][]string{
		source:                       {},
		source + derivedSourceSuffix: {},
	}
	for _, c := range chunks {
		out[c.Source] = append(out[c.Source], c.ContentHash)
	}
	return out
}
