package repository

import (
	"context"
	"errors"

	"github.com/aspire-solutions/councilkb/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationSummaryRepository persists rolling per-session summaries.
type ConversationSummaryRepository struct {
	db dbtx
}

func NewConversationSummaryRepository(pool *pgxpool.Pool) *ConversationSummaryRepository {
	return &ConversationSummaryRepository{db: pool}
}

func (r *ConversationSummaryRepository) Get(ctx context.Context, tenantID, sessionID string) (*domain.ConversationSummary, error) {
	var s domain.ConversationSummary
	err := r.db.QueryRow(ctx,
		`SELECT tenant_id, session_id, summary, updated_at
		 FROM conversation_summaries WHERE tenant_id = $1 AND session_id = $2`,
		tenantID, sessionID,
	).Scan(&s.TenantID, &s.SessionID, &s.Summary, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSummaryNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Put overwrites the summary for a (tenant, session), creating the row on
// first write.
func (r *ConversationSummaryRepository) Put(ctx context.Context, summary *domain.ConversationSummary) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversation_summaries (tenant_id, session_id, summary, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, session_id) DO UPDATE SET summary = $3, updated_at = $4`,
		summary.TenantID, summary.SessionID, summary.Summary, summary.UpdatedAt,
	)
	return err
}
