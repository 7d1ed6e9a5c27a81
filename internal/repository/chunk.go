package repository

import (
	"context"
	"time"

	"github.com/aspire-solutions/councilkb/internal/domain"
	"github.com/aspire-solutions/councilkb/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// KnowledgeChunkRepository handles persistence of embedded knowledge chunks.
type KnowledgeChunkRepository struct {
	db dbtx
}

func NewKnowledgeChunkRepository(pool *pgxpool.Pool) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{db: pool}
}

func NewKnowledgeChunkRepositoryWithTx(tx pgx.Tx) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{db: tx}
}

// UpsertChunks writes a batch of embedded chunks. The unique key on
// (tenant_id, source, section, content_hash) makes re-runs idempotent:
// unchanged content is a no-op, changed content inserts a new row. Returns
// the number of newly inserted rows.
func (r *KnowledgeChunkRepository) UpsertChunks(ctx context.Context, chunks []domain.KnowledgeChunk) (int, error) {
	inserted := 0
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		updatedAt := c.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}
		tag, err := r.db.Exec(ctx,
			`INSERT INTO knowledge_chunks
				(id, tenant_id, source, section, kind, content, embedding, priority, chunk_index, content_hash, metadata, active, created_at, updated_at)
			 VALUES
				(gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			 ON CONFLICT (tenant_id, source, section, content_hash) DO NOTHING`,
			c.TenantID,
			c.Source,
			c.Section,
			c.Kind,
			c.Content,
			pgvector.NewVector(c.Embedding),
			c.Priority,
			c.ChunkIndex,
			c.ContentHash,
			c.Metadata,
			c.Active,
			createdAt,
			updatedAt,
		)
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// DeactivateMissing flips active=false on rows of a (tenant, source) whose
// content hash no longer appears in the freshly ingested document. An empty
// live set retires every active row of the source, which is how a heading
// block removed from the document takes its old chunks out of search.
func (r *KnowledgeChunkRepository) DeactivateMissing(ctx context.Context, tenantID, source string, liveHashes []string) (int, error) {
	if liveHashes == nil {
		// A nil slice would encode as SQL NULL and match no rows.
		liveHashes = []string{}
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_chunks
		 SET active = false, updated_at = $4
		 WHERE tenant_id = $1 AND source = $2 AND active AND NOT (content_hash = ANY($3))`,
		tenantID, source, liveHashes, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// SearchSimilar returns the top-K nearest active chunks for one tenant,
// ordered by cosine distance.
func (r *KnowledgeChunkRepository) SearchSimilar(ctx context.Context, tenantID string, embedding []float32, topK int) ([]*service.ChunkSearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := r.db.Query(ctx,
		`SELECT content, section, source, priority, chunk_index, embedding <=> $2 AS distance
		 FROM knowledge_chunks
		 WHERE tenant_id = $1 AND active
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		tenantID, pgvector.NewVector(embedding), topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*service.ChunkSearchResult
	for rows.Next() {
		var res service.ChunkSearchResult
		var distance float64
		if err := rows.Scan(&res.Content, &res.Section, &res.Source, &res.Priority, &res.ChunkIndex, &distance); err != nil {
			return nil, err
		}
		res.Distance = float32(distance)
		results = append(results, &res)
	}
	return results, rows.Err()
}

// SectionCount is a per-section chunk inventory row.
type SectionCount struct {
	Section domain.Section
	Kind    domain.ChunkKind
	Count   int
}

// CountBySection returns active chunk counts per section and kind for one
// tenant.
func (r *KnowledgeChunkRepository) CountBySection(ctx context.Context, tenantID string) ([]SectionCount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT section, kind, COUNT(*)
		 FROM knowledge_chunks
		 WHERE tenant_id = $1 AND active
		 GROUP BY section, kind
		 ORDER BY section, kind`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []SectionCount
	for rows.Next() {
		var c SectionCount
		if err := rows.Scan(&c.Section, &c.Kind, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
