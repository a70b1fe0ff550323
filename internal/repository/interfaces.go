package repository

import (
	"context"
	"errors"

	"github.com/emissio/searchsync/internal/domain"

	"github.com/google/uuid"
)

// ErrSourceNotFound is returned when a source name resolves to no row.
var ErrSourceNotFound = errors.New("source not found")

// ProjectionRepository materializes and reads the denormalized search
// projection. The projection is the sole source of truth for the index;
// refresh runs inside the database's own transaction and is idempotent.
type ProjectionRepository interface {
	// Refresh recomputes projection rows for one source.
	Refresh(ctx context.Context, sourceName string) error
	// RefreshAll recomputes the whole projection.
	RefreshAll(ctx context.Context) error
	// ListBySource returns every projection row for one source, paging
	// internally past the store's row cap.
	ListBySource(ctx context.Context, sourceName string) ([]domain.SearchRecord, error)
	// ListPage returns one page of the full projection, ordered by
	// object identifier so pagination is stable across calls.
	ListPage(ctx context.Context, offset, limit int) ([]domain.SearchRecord, error)
	// Count returns the total number of projection rows.
	Count(ctx context.Context) (int64, error)
}

// SourceRepository manages the data-source catalog.
type SourceRepository interface {
	// ResolveExactName finds the stored source name matching name
	// case-insensitively, returning ErrSourceNotFound when absent.
	ResolveExactName(ctx context.Context, name string) (string, error)
	GetByName(ctx context.Context, name string) (domain.Source, error)
	// Ensure inserts the source if it does not exist yet; existing rows
	// are left untouched.
	Ensure(ctx context.Context, source domain.Source) error
}

// AssignmentRepository manages workspace ↔ source visibility grants.
type AssignmentRepository interface {
	Upsert(ctx context.Context, assignment domain.WorkspaceAssignment) error
	Delete(ctx context.Context, sourceName string, workspaceID uuid.UUID) error
	// UpsertMany grants one workspace access to several sources at once.
	// assignedBy is nil when the request carried no authenticated actor.
	UpsertMany(ctx context.Context, workspaceID uuid.UUID, assignedBy *uuid.UUID, sourceNames []string) error
	// DeleteMany revokes one workspace's access to several sources.
	DeleteMany(ctx context.Context, workspaceID uuid.UUID, sourceNames []string) error
	// WorkspaceIDs lists the workspaces currently assigned to a source.
	WorkspaceIDs(ctx context.Context, sourceName string) ([]uuid.UUID, error)
}

// EmissionFactorRepository persists raw emission-factor rows (the
// normalized side the projection is derived from).
type EmissionFactorRepository interface {
	UpsertBatch(ctx context.Context, factors []domain.EmissionFactor) (int, error)
}

// SyncLogRepository stores per-source sync outcomes and skipped ingestion
// rows for operator inspection.
type SyncLogRepository interface {
	Record(ctx context.Context, entry domain.SyncLogEntry) error
	List(ctx context.Context, sourceName string, limit, offset int) ([]domain.SyncLogEntry, error)
}
