package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/emissio/searchsync/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sourceRepository struct {
	pool *pgxpool.Pool
}

// NewSourceRepository wires a repository backed by pgxpool.
func NewSourceRepository(pool *pgxpool.Pool) SourceRepository {
	return &sourceRepository{pool: pool}
}

func (r *sourceRepository) ResolveExactName(ctx context.Context, name string) (string, error) {
	var exact string
	err := r.pool.QueryRow(ctx,
		`SELECT source_name FROM sources WHERE lower(source_name) = lower($1)`,
		name,
	).Scan(&exact)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSourceNotFound
		}
		return "", fmt.Errorf("failed to resolve source name: %w", err)
	}
	return exact, nil
}

func (r *sourceRepository) GetByName(ctx context.Context, name string) (domain.Source, error) {
	var src domain.Source
	err := r.pool.QueryRow(ctx,
		`SELECT source_name, access_level, is_global, auto_detected, created_at, updated_at
		 FROM sources WHERE source_name = $1`,
		name,
	).Scan(&src.Name, &src.AccessLevel, &src.IsGlobal, &src.AutoDetected, &src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Source{}, ErrSourceNotFound
		}
		return domain.Source{}, fmt.Errorf("failed to get source: %w", err)
	}
	return src, nil
}

func (r *sourceRepository) Ensure(ctx context.Context, source domain.Source) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sources (source_name, access_level, is_global, auto_detected)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (source_name) DO NOTHING`,
		source.Name, source.AccessLevel, source.IsGlobal, source.AutoDetected,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure source %s: %w", source.Name, err)
	}
	return nil
}
