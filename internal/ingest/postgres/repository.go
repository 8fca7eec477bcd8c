// Package postgres provides the PostgreSQL implementation of the ingest
// repository.
package postgres

import (
	"context"
	"fmt"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements ingest.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveRecords inserts raw telemetry records in a single batch.
func (r *Repository) SaveRecords(ctx context.Context, records []domain.RawRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO raw_data (source, payload) VALUES ($1, $2)`,
			rec.Source, rec.Payload,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert raw record: %w", err)
		}
	}
	return nil
}
