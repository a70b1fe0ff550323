package assignments

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/emissio/searchsync/internal/auth"
	"github.com/emissio/searchsync/internal/domain"
	"github.com/emissio/searchsync/internal/repository"

	"github.com/google/uuid"
)

// Syncer runs differential syncs after assignment changes.
type Syncer interface {
	SyncSource(ctx context.Context, sourceName string) (domain.SyncResult, error)
	SyncSources(ctx context.Context, sourceNames []string) map[string]domain.SyncResult
}

// Service applies workspace ↔ source assignment changes and propagates
// them into the search index. Assignment writes are authoritative; a
// failed projection refresh or index sync degrades the response status but
// never rolls the assignment back (the next sync self-heals).
type Service struct {
	sources     repository.SourceRepository
	assignments repository.AssignmentRepository
	projections repository.ProjectionRepository
	syncer      Syncer
}

// NewService creates an assignment service.
func NewService(
	sources repository.SourceRepository,
	assignments repository.AssignmentRepository,
	projections repository.ProjectionRepository,
	syncer Syncer,
) *Service {
	return &Service{
		sources:     sources,
		assignments: assignments,
		projections: projections,
		syncer:      syncer,
	}
}

// ChangeRequest assigns or unassigns one source for one workspace.
type ChangeRequest struct {
	WorkspaceID uuid.UUID               `json:"workspace_id"`
	SourceName  string                  `json:"source_name"`
	Action      domain.AssignmentAction `json:"action"`
}

// ChangeResult reports one applied change and its propagation statuses.
// AssignedWorkspaces is the source's full workspace set after the change.
type ChangeResult struct {
	OK                 bool                    `json:"ok"`
	Action             domain.AssignmentAction `json:"action"`
	SourceName         string                  `json:"source_name"`
	SourceAccessLevel  domain.AccessLevel      `json:"source_access_level"`
	WorkspaceID        uuid.UUID               `json:"workspace_id"`
	AssignedWorkspaces []uuid.UUID             `json:"assigned_workspaces"`
	ProjectionRefresh  domain.SyncStatus       `json:"projection_refresh"`
	IndexSync          domain.SyncResult       `json:"index_sync"`
}

// Apply performs one assign/unassign. The source name is resolved
// case-insensitively against the stored catalog first so the assignment
// row always carries the canonical spelling.
func (s *Service) Apply(ctx context.Context, req ChangeRequest) (ChangeResult, error) {
	var result ChangeResult

	if !req.Action.Valid() {
		return result, fmt.Errorf("invalid action %q", req.Action)
	}
	if req.SourceName == "" {
		return result, errors.New("source_name is required")
	}
	if req.WorkspaceID == uuid.Nil {
		return result, errors.New("workspace_id is required")
	}

	exactName, err := s.sources.ResolveExactName(ctx, req.SourceName)
	if err != nil {
		return result, err
	}

	src, err := s.sources.GetByName(ctx, exactName)
	if err != nil {
		return result, err
	}

	switch req.Action {
	case domain.ActionAssign:
		assignment := domain.WorkspaceAssignment{
			SourceName:  exactName,
			WorkspaceID: req.WorkspaceID,
		}
		if actor, ok := auth.ActorIDFromContext(ctx); ok {
			assignment.AssignedBy = &actor
		}
		if err := s.assignments.Upsert(ctx, assignment); err != nil {
			return result, err
		}
	case domain.ActionUnassign:
		if err := s.assignments.Delete(ctx, exactName, req.WorkspaceID); err != nil {
			return result, err
		}
	}

	result = ChangeResult{
		OK:                true,
		Action:            req.Action,
		SourceName:        exactName,
		SourceAccessLevel: src.AccessLevel,
		WorkspaceID:       req.WorkspaceID,
		ProjectionRefresh: domain.SyncStatusOK,
	}

	if workspaces, err := s.assignments.WorkspaceIDs(ctx, exactName); err == nil {
		result.AssignedWorkspaces = workspaces
	} else {
		log.Printf("[ASSIGN] failed to list workspaces for %s: %v", exactName, err)
	}

	if err := s.projections.Refresh(ctx, exactName); err != nil {
		// The assignment itself is already durable; report and move on.
		log.Printf("[ASSIGN] projection refresh failed for %s: %v", exactName, err)
		result.ProjectionRefresh = domain.SyncStatusFailed
	}

	sync, err := s.syncer.SyncSource(ctx, exactName)
	if err != nil {
		log.Printf("[ASSIGN] index sync failed for %s: %v", exactName, err)
	}
	result.IndexSync = sync

	return result, nil
}

// BulkRequest applies many assignment changes for one workspace at once.
type BulkRequest struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Assign      []string  `json:"assign"`
	Unassign    []string  `json:"unassign"`
}

// BulkResult reports per-source sync outcomes for a bulk change.
type BulkResult struct {
	OK     bool                         `json:"ok"`
	Synced map[string]domain.SyncResult `json:"synced"`
}

// ApplyBulk applies all assignment changes first, then syncs the
// deduplicated union of touched sources — one differential sync per source
// no matter how often it appears across the two lists.
func (s *Service) ApplyBulk(ctx context.Context, req BulkRequest) (BulkResult, error) {
	if req.WorkspaceID == uuid.Nil {
		return BulkResult{}, errors.New("workspace_id is required")
	}

	var assignedBy *uuid.UUID
	if actor, ok := auth.ActorIDFromContext(ctx); ok {
		assignedBy = &actor
	}

	if err := s.assignments.UpsertMany(ctx, req.WorkspaceID, assignedBy, req.Assign); err != nil {
		return BulkResult{}, err
	}
	if err := s.assignments.DeleteMany(ctx, req.WorkspaceID, req.Unassign); err != nil {
		return BulkResult{}, err
	}

	touched := append(append([]string{}, req.Assign...), req.Unassign...)
	results := s.syncer.SyncSources(ctx, touched)

	return BulkResult{OK: true, Synced: results}, nil
}
