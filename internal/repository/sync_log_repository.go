package repository

import (
	"context"
	"fmt"

	"github.com/emissio/searchsync/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type syncLogRepository struct {
	pool *pgxpool.Pool
}

// NewSyncLogRepository wires a repository backed by pgxpool.
func NewSyncLogRepository(pool *pgxpool.Pool) SyncLogRepository {
	return &syncLogRepository{pool: pool}
}

func (r *syncLogRepository) Record(ctx context.Context, entry domain.SyncLogEntry) error {
	if r.pool == nil {
		return fmt.Errorf("sync log repository not initialized")
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO sync_log (source_name, operation, status, upserted, deleted, detail)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.SourceName, entry.Operation, entry.Status, entry.Upserted, entry.Deleted, entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync log: %w", err)
	}
	return nil
}

func (r *syncLogRepository) List(ctx context.Context, sourceName string, limit, offset int) ([]domain.SyncLogEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("sync log repository not initialized")
	}

	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, source_name, operation, status, upserted, deleted, detail, created_at
		 FROM sync_log`
	args := []any{}
	if sourceName != "" {
		query += ` WHERE source_name = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, sourceName, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync log: %w", err)
	}
	defer rows.Close()

	var entries []domain.SyncLogEntry
	for rows.Next() {
		var e domain.SyncLogEntry
		if err := rows.Scan(&e.ID, &e.SourceName, &e.Operation, &e.Status, &e.Upserted, &e.Deleted, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sync log: %w", err)
	}
	return entries, nil
}
