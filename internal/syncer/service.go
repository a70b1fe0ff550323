package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/emissio/searchsync/internal/domain"
	"github.com/emissio/searchsync/internal/repository"
	"github.com/emissio/searchsync/internal/searchindex"
)

// ErrEmptySource is returned when a sync is requested without a partition key.
var ErrEmptySource = errors.New("source name is required")

// Service reconciles one partition key at a time between the search
// projection and the external index. Every operation is a blind idempotent
// upsert or delete, so re-running a sync (including concurrent overlapping
// runs for the same key) converges instead of corrupting.
type Service struct {
	projections repository.ProjectionRepository
	sources     repository.SourceRepository
	syncLog     repository.SyncLogRepository
	index       searchindex.Client
	indexName   string
}

// NewService creates a differential syncer writing to indexName.
func NewService(
	projections repository.ProjectionRepository,
	sources repository.SourceRepository,
	syncLog repository.SyncLogRepository,
	index searchindex.Client,
	indexName string,
) *Service {
	return &Service{
		projections: projections,
		sources:     sources,
		syncLog:     syncLog,
		index:       index,
		indexName:   indexName,
	}
}

// SyncSource reconciles a single source:
//
//  1. refresh the projection for the source,
//  2. fetch all projection rows for it,
//  3. browse the index for object identifiers currently carrying it,
//  4. delete identifiers absent from the projection,
//  5. upsert every projection row (unchanged rows are rewritten, not
//     skipped — idempotency over bandwidth).
//
// A record deleted from the relational side simply stops appearing in the
// projection; step 4 is what picks that up. The projection and index reads
// are not a consistent snapshot pair; a write landing between them can cause
// a stale decision that self-heals on the next sync.
func (s *Service) SyncSource(ctx context.Context, sourceName string) (domain.SyncResult, error) {
	if sourceName == "" {
		return domain.SyncResult{Status: domain.SyncStatusFailed, Error: ErrEmptySource.Error()}, ErrEmptySource
	}

	// Auto-register unknown sources so the projection join has a row to
	// resolve access metadata from.
	src := domain.NewSource(sourceName, domain.AccessLevelFree)
	src.AutoDetected = true
	if err := s.sources.Ensure(ctx, src); err != nil {
		return s.failed(ctx, sourceName, fmt.Errorf("failed to ensure source: %w", err))
	}

	if err := s.projections.Refresh(ctx, sourceName); err != nil {
		return s.failed(ctx, sourceName, err)
	}

	records, err := s.projections.ListBySource(ctx, sourceName)
	if err != nil {
		return s.failed(ctx, sourceName, err)
	}

	currentIDs := make(map[string]struct{}, len(records))
	for _, rec := range records {
		currentIDs[rec.ObjectID] = struct{}{}
	}

	existingIDs, err := s.index.BrowseObjectIDs(ctx, s.indexName, searchindex.SourceFilter(sourceName))
	if err != nil {
		return s.failed(ctx, sourceName, fmt.Errorf("failed to browse index: %w", err))
	}

	var toDelete []string
	for _, id := range existingIDs {
		if _, ok := currentIDs[id]; !ok {
			toDelete = append(toDelete, id)
		}
	}

	if len(toDelete) > 0 {
		if _, err := s.index.DeleteObjects(ctx, s.indexName, toDelete); err != nil {
			return s.failed(ctx, sourceName, fmt.Errorf("failed to delete stale objects: %w", err))
		}
	}

	if len(records) > 0 {
		objects, err := recordObjects(records)
		if err != nil {
			return s.failed(ctx, sourceName, err)
		}
		if _, err := s.index.SaveObjects(ctx, s.indexName, objects); err != nil {
			return s.failed(ctx, sourceName, fmt.Errorf("failed to upsert objects: %w", err))
		}
	}

	result := domain.SyncResult{
		Status:   domain.SyncStatusOK,
		Upserted: len(records),
		Deleted:  len(toDelete),
	}
	s.record(ctx, sourceName, result)
	return result, nil
}

// SyncSources reconciles several sources independently, deduplicating keys
// first. A failing key never rolls back or blocks its siblings; each entry
// in the returned map is separately retryable.
func (s *Service) SyncSources(ctx context.Context, sourceNames []string) map[string]domain.SyncResult {
	results := make(map[string]domain.SyncResult, len(sourceNames))
	for _, name := range dedupe(sourceNames) {
		result, err := s.SyncSource(ctx, name)
		if err != nil {
			log.Printf("[SYNC] source %s failed: %v", name, err)
		}
		results[name] = result
	}
	return results
}

func (s *Service) failed(ctx context.Context, sourceName string, err error) (domain.SyncResult, error) {
	result := domain.SyncResult{Status: domain.SyncStatusFailed, Error: err.Error()}
	s.record(ctx, sourceName, result)
	return result, err
}

// record keeps the sync log best-effort; losing an audit row must not turn
// a successful sync into a failure.
func (s *Service) record(ctx context.Context, sourceName string, result domain.SyncResult) {
	if s.syncLog == nil {
		return
	}
	entry := domain.SyncLogEntry{
		SourceName: sourceName,
		Operation:  domain.SyncOpDifferential,
		Status:     result.Status,
		Upserted:   result.Upserted,
		Deleted:    result.Deleted,
		Detail:     result.Error,
	}
	if err := s.syncLog.Record(ctx, entry); err != nil {
		log.Printf("[SYNC] failed to record sync log for %s: %v", sourceName, err)
	}
}

func recordObjects(records []domain.SearchRecord) ([]searchindex.Object, error) {
	objects := make([]searchindex.Object, 0, len(records))
	for _, rec := range records {
		obj, err := searchindex.ObjectFrom(rec)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ObjectID, err)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
