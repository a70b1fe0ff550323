package repository

import (
	"context"
	"fmt"

	"github.com/emissio/searchsync/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type emissionFactorRepository struct {
	pool *pgxpool.Pool
}

// NewEmissionFactorRepository wires a repository backed by pgxpool.
func NewEmissionFactorRepository(pool *pgxpool.Pool) EmissionFactorRepository {
	return &emissionFactorRepository{pool: pool}
}

// UpsertBatch writes all rows inside one transaction so a failed import
// never leaves a half-written source behind.
func (r *emissionFactorRepository) UpsertBatch(ctx context.Context, factors []domain.EmissionFactor) (int, error) {
	if len(factors) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, f := range factors {
		batch.Queue(
			`INSERT INTO emission_factors (
				object_id, source, factor_value, unit, date, uncertainty,
				name_fr, name_en, description_fr, description_en,
				sector_fr, sector_en, subsector_fr, subsector_en,
				scope_fr, scope_en, location_fr, location_en,
				comments_fr, comments_en
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
				$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			ON CONFLICT (object_id) DO UPDATE SET
				source = EXCLUDED.source,
				factor_value = EXCLUDED.factor_value,
				unit = EXCLUDED.unit,
				date = EXCLUDED.date,
				uncertainty = EXCLUDED.uncertainty,
				name_fr = EXCLUDED.name_fr,
				name_en = EXCLUDED.name_en,
				description_fr = EXCLUDED.description_fr,
				description_en = EXCLUDED.description_en,
				sector_fr = EXCLUDED.sector_fr,
				sector_en = EXCLUDED.sector_en,
				subsector_fr = EXCLUDED.subsector_fr,
				subsector_en = EXCLUDED.subsector_en,
				scope_fr = EXCLUDED.scope_fr,
				scope_en = EXCLUDED.scope_en,
				location_fr = EXCLUDED.location_fr,
				location_en = EXCLUDED.location_en,
				comments_fr = EXCLUDED.comments_fr,
				comments_en = EXCLUDED.comments_en,
				updated_at = now()`,
			f.ObjectID, f.Source, f.FactorValue, f.Unit, f.Date, f.Uncertainty,
			f.NameFR, f.NameEN, f.DescriptionFR, f.DescriptionEN,
			f.SectorFR, f.SectorEN, f.SubsectorFR, f.SubsectorEN,
			f.ScopeFR, f.ScopeEN, f.LocationFR, f.LocationEN,
			f.CommentsFR, f.CommentsEN,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range factors {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to upsert emission factor: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to flush batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return len(factors), nil
}
