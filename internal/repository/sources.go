package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logvault/logvault/internal/model"
)

// SourceRepository persists and reads collector source definitions.
type SourceRepository struct {
	pool *pgxpool.Pool
}

// NewSourceRepository returns a SourceRepository using the given pool.
func NewSourceRepository(pool *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{pool: pool}
}

// Create inserts a new source and returns it with ID and timestamps set.
func (r *SourceRepository) Create(ctx context.Context, src *model.Source) error {
	if src.ID == uuid.Nil {
		src.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO sources (id, name, type, configuration)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		src.ID, src.Name, src.Type, src.Configuration,
	).Scan(&src.ID, &src.CreatedAt, &src.UpdatedAt)
}

// List returns all sources ordered by created_at descending.
func (r *SourceRepository) List(ctx context.Context) ([]model.Source, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, type, configuration, created_at, updated_at
		FROM sources
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Source
	for rows.Next() {
		var s model.Source
		if err := rows.Scan(&s.ID, &s.Name, &s.Type, &s.Configuration, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// GetByID returns one source by id, or nil if not found.
func (r *SourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Source, error) {
	var s model.Source
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, type, configuration, created_at, updated_at
		FROM sources WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Type, &s.Configuration, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Update replaces name, type and configuration. Returns pgx.ErrNoRows if the
// source does not exist.
func (r *SourceRepository) Update(ctx context.Context, src *model.Source) error {
	return r.pool.QueryRow(ctx, `
		UPDATE sources
		SET name = $2, type = $3, configuration = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		src.ID, src.Name, src.Type, src.Configuration,
	).Scan(&src.UpdatedAt)
}

// Delete removes a source by id. Returns false if nothing was deleted.
func (r *SourceRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
