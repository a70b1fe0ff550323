package repository

import (
	"context"
	"fmt"

	"github.com/emissio/searchsync/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository wires a repository backed by pgxpool.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) Upsert(ctx context.Context, assignment domain.WorkspaceAssignment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO workspace_source_assignments (source_name, workspace_id, assigned_by)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (source_name, workspace_id) DO NOTHING`,
		assignment.SourceName, assignment.WorkspaceID, assignment.AssignedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}
	return nil
}

func (r *assignmentRepository) Delete(ctx context.Context, sourceName string, workspaceID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM workspace_source_assignments
		 WHERE source_name = $1 AND workspace_id = $2`,
		sourceName, workspaceID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

func (r *assignmentRepository) UpsertMany(ctx context.Context, workspaceID uuid.UUID, assignedBy *uuid.UUID, sourceNames []string) error {
	if len(sourceNames) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO workspace_source_assignments (source_name, workspace_id, assigned_by)
		 SELECT unnest($1::text[]), $2, $3
		 ON CONFLICT (source_name, workspace_id) DO NOTHING`,
		sourceNames, workspaceID, assignedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert assignments: %w", err)
	}
	return nil
}

func (r *assignmentRepository) DeleteMany(ctx context.Context, workspaceID uuid.UUID, sourceNames []string) error {
	if len(sourceNames) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`DELETE FROM workspace_source_assignments
		 WHERE workspace_id = $1 AND source_name = ANY($2)`,
		workspaceID, sourceNames,
	)
	if err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	return nil
}

func (r *assignmentRepository) WorkspaceIDs(ctx context.Context, sourceName string) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT workspace_id FROM workspace_source_assignments WHERE source_name = $1`,
		sourceName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned workspaces: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan workspace id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read assigned workspaces: %w", err)
	}
	return ids, nil
}
