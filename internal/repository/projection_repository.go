package repository

import (
	"context"
	"fmt"

	"github.com/emissio/searchsync/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// listPageSize bounds a single projection read; ListBySource pages past it
// so the store's row cap never truncates a partition.
const listPageSize = 1000

type projectionRepository struct {
	pool *pgxpool.Pool
}

// NewProjectionRepository wires a repository backed by pgxpool.
func NewProjectionRepository(pool *pgxpool.Pool) ProjectionRepository {
	return &projectionRepository{pool: pool}
}

func (r *projectionRepository) Refresh(ctx context.Context, sourceName string) error {
	if sourceName == "" {
		return fmt.Errorf("source name is required")
	}
	_, err := r.pool.Exec(ctx, `SELECT refresh_search_projection($1)`, sourceName)
	if err != nil {
		return fmt.Errorf("failed to refresh projection for %s: %w", sourceName, err)
	}
	return nil
}

func (r *projectionRepository) RefreshAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `SELECT refresh_search_projection(NULL)`)
	if err != nil {
		return fmt.Errorf("failed to refresh full projection: %w", err)
	}
	return nil
}

const projectionColumns = `object_id, source, access_level, is_global, assigned_workspace_ids,
	factor_value, unit, date, uncertainty,
	name_fr, name_en, description_fr, description_en,
	sector_fr, sector_en, subsector_fr, subsector_en,
	scope_fr, scope_en, location_fr, location_en,
	comments_fr, comments_en`

func (r *projectionRepository) ListBySource(ctx context.Context, sourceName string) ([]domain.SearchRecord, error) {
	var records []domain.SearchRecord
	offset := 0
	for {
		rows, err := r.pool.Query(ctx,
			`SELECT `+projectionColumns+`
			 FROM search_projection
			 WHERE source = $1
			 ORDER BY object_id
			 LIMIT $2 OFFSET $3`,
			sourceName, listPageSize, offset,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to list projection for %s: %w", sourceName, err)
		}

		page, err := scanRecords(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)
		if len(page) < listPageSize {
			return records, nil
		}
		offset += listPageSize
	}
}

func (r *projectionRepository) ListPage(ctx context.Context, offset, limit int) ([]domain.SearchRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectionColumns+`
		 FROM search_projection
		 ORDER BY object_id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projection page: %w", err)
	}
	return scanRecords(rows)
}

func (r *projectionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM search_projection`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count projection rows: %w", err)
	}
	return count, nil
}

func scanRecords(rows pgx.Rows) ([]domain.SearchRecord, error) {
	defer rows.Close()

	var records []domain.SearchRecord
	for rows.Next() {
		var rec domain.SearchRecord
		err := rows.Scan(
			&rec.ObjectID, &rec.Source, &rec.AccessLevel, &rec.IsGlobal, &rec.AssignedWorkspaceIDs,
			&rec.FactorValue, &rec.Unit, &rec.Date, &rec.Uncertainty,
			&rec.NameFR, &rec.NameEN, &rec.DescriptionFR, &rec.DescriptionEN,
			&rec.SectorFR, &rec.SectorEN, &rec.SubsectorFR, &rec.SubsectorEN,
			&rec.ScopeFR, &rec.ScopeEN, &rec.LocationFR, &rec.LocationEN,
			&rec.CommentsFR, &rec.CommentsEN,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan projection row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read projection rows: %w", err)
	}
	return records, nil
}
