package repository

import (
	"context"

	"github.com/aspire-solutions/councilkb/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContactRepository persists website contact-form submissions.
type ContactRepository struct {
	db dbtx
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{db: pool}
}

func (r *ContactRepository) Create(ctx context.Context, c *domain.ContactSubmission) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO contact_submissions (id, name, email, phone, message, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Email, nullableString(c.Phone), c.Message, c.Status, c.CreatedAt,
	)
	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
