package reindexer

import (
	"context"
	"fmt"
	"log"

	"github.com/emissio/searchsync/internal/domain"
	"github.com/emissio/searchsync/internal/repository"
	"github.com/emissio/searchsync/internal/searchindex"
)

// Step names the phase of the full-reindex state machine a failure
// happened in, so an operator knows where to look before retrying.
type Step string

const (
	StepConfigureStaging Step = "configure_staging"
	StepStreamUpsert     Step = "stream_upsert"
	StepSwap             Step = "swap"
)

// StepError wraps a failure with the pipeline step it occurred in.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("reindex step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Request optionally overrides the configured index name and staging suffix.
type Request struct {
	IndexName     string `json:"indexName,omitempty"`
	StagingSuffix string `json:"stagingSuffix,omitempty"`
}

// Result reports a completed full reindex.
type Result struct {
	Status              string `json:"status"`
	IndexName           string `json:"indexName"`
	TotalRecordsIndexed int    `json:"totalRecordsIndexed"`
}

// Service rebuilds the production index from the projection without ever
// exposing a partially written index: everything is staged into a
// disposable index and then swapped in with one atomic move. A failure at
// any step leaves the staging index in place for diagnosis; retrying
// restages from scratch, which is always safe because nothing is visible
// until the swap.
type Service struct {
	projections   repository.ProjectionRepository
	syncLog       repository.SyncLogRepository
	index         searchindex.Client
	waiter        searchindex.TaskWaiter
	indexName     string
	stagingSuffix string
	pageSize      int
}

// NewService creates a full reindexer for the production index.
func NewService(
	projections repository.ProjectionRepository,
	syncLog repository.SyncLogRepository,
	index searchindex.Client,
	waiter searchindex.TaskWaiter,
	indexName, stagingSuffix string,
	pageSize int,
) *Service {
	if stagingSuffix == "" {
		stagingSuffix = "_tmp"
	}
	if pageSize <= 0 {
		pageSize = 5000
	}
	return &Service{
		projections:   projections,
		syncLog:       syncLog,
		index:         index,
		waiter:        waiter,
		indexName:     indexName,
		stagingSuffix: stagingSuffix,
		pageSize:      pageSize,
	}
}

// Reindex runs CONFIGURE_STAGING → STREAM_UPSERT → SWAP. The returned
// error, when non-nil, is a *StepError naming the failing step; the
// pipeline never auto-retries itself.
func (s *Service) Reindex(ctx context.Context, req Request) (Result, error) {
	production := s.indexName
	if req.IndexName != "" {
		production = req.IndexName
	}
	suffix := s.stagingSuffix
	if req.StagingSuffix != "" {
		suffix = req.StagingSuffix
	}
	staging := production + suffix

	if err := s.configureStaging(ctx, production, staging); err != nil {
		return s.failed(ctx, StepConfigureStaging, err)
	}

	total, err := s.streamUpsert(ctx, staging)
	if err != nil {
		return s.failed(ctx, StepStreamUpsert, err)
	}

	if err := s.swap(ctx, staging, production); err != nil {
		return s.failed(ctx, StepSwap, err)
	}

	result := Result{Status: "ok", IndexName: production, TotalRecordsIndexed: total}
	s.record(ctx, domain.SyncStatusOK, total, "")
	return result, nil
}

// configureStaging copies settings, synonyms and rules from the live
// production index onto the staging index so the swap preserves index
// configuration byte-identical.
func (s *Service) configureStaging(ctx context.Context, production, staging string) error {
	settings, err := s.index.Settings(ctx, production)
	if err != nil {
		return fmt.Errorf("failed to read production settings: %w", err)
	}
	task, err := s.index.SetSettings(ctx, staging, settings)
	if err != nil {
		return err
	}
	if err := s.await(ctx, task); err != nil {
		return err
	}

	synonyms, err := s.index.Synonyms(ctx, production)
	if err != nil {
		return fmt.Errorf("failed to read production synonyms: %w", err)
	}
	if len(synonyms) > 0 {
		task, err := s.index.ReplaceSynonyms(ctx, staging, synonyms)
		if err != nil {
			return err
		}
		if err := s.await(ctx, task); err != nil {
			return err
		}
	}

	rules, err := s.index.Rules(ctx, production)
	if err != nil {
		return fmt.Errorf("failed to read production rules: %w", err)
	}
	if len(rules) > 0 {
		task, err := s.index.ReplaceRules(ctx, staging, rules)
		if err != nil {
			return err
		}
		if err := s.await(ctx, task); err != nil {
			return err
		}
	}

	return nil
}

// streamUpsert refreshes the projection, then pages through it and batch
// upserts every page into the staging index, waiting for each batch task
// before fetching the next page. Pagination restarts cleanly on retry:
// nothing written here is reader-visible until the swap.
func (s *Service) streamUpsert(ctx context.Context, staging string) (int, error) {
	if err := s.projections.RefreshAll(ctx); err != nil {
		return 0, err
	}
	if count, err := s.projections.Count(ctx); err == nil {
		log.Printf("[REINDEX] staging %d projection records into %s", count, staging)
	}

	total := 0
	for offset := 0; ; offset += s.pageSize {
		records, err := s.projections.ListPage(ctx, offset, s.pageSize)
		if err != nil {
			return total, fmt.Errorf("failed to fetch projection page at %d: %w", offset, err)
		}
		if len(records) == 0 {
			break
		}

		objects := make([]searchindex.Object, 0, len(records))
		for _, rec := range records {
			obj, err := searchindex.ObjectFrom(rec)
			if err != nil {
				return total, fmt.Errorf("record %s: %w", rec.ObjectID, err)
			}
			objects = append(objects, obj)
		}

		tasks, err := s.index.SaveObjects(ctx, staging, objects)
		if err != nil {
			return total, fmt.Errorf("failed to stage page at %d: %w", offset, err)
		}
		if err := s.awaitAll(ctx, tasks); err != nil {
			return total, err
		}

		total += len(records)
		if len(records) < s.pageSize {
			break
		}
	}
	return total, nil
}

// swap atomically replaces the production index with the fully staged one.
// The staging index is consumed by the move.
func (s *Service) swap(ctx context.Context, staging, production string) error {
	task, err := s.index.MoveIndex(ctx, staging, production)
	if err != nil {
		return err
	}
	return s.await(ctx, task)
}

func (s *Service) await(ctx context.Context, task searchindex.Task) error {
	outcome, err := s.waiter.Wait(ctx, s.index, task)
	return waitError(task, outcome, err)
}

func (s *Service) awaitAll(ctx context.Context, tasks []searchindex.Task) error {
	task, outcome, err := s.waiter.WaitAll(ctx, s.index, tasks)
	return waitError(task, outcome, err)
}

func waitError(task searchindex.Task, outcome searchindex.WaitOutcome, err error) error {
	switch outcome {
	case searchindex.WaitCompleted:
		return nil
	case searchindex.WaitTimedOut:
		return fmt.Errorf("task %d on %s did not publish within the polling budget", task.ID, task.Index)
	default:
		return fmt.Errorf("task %d on %s: %w", task.ID, task.Index, err)
	}
}

func (s *Service) failed(ctx context.Context, step Step, err error) (Result, error) {
	stepErr := &StepError{Step: step, Err: err}
	s.record(ctx, domain.SyncStatusFailed, 0, stepErr.Error())
	return Result{Status: "failed"}, stepErr
}

func (s *Service) record(ctx context.Context, status domain.SyncStatus, total int, detail string) {
	if s.syncLog == nil {
		return
	}
	entry := domain.SyncLogEntry{
		SourceName: s.indexName,
		Operation:  domain.SyncOpFullReindex,
		Status:     status,
		Upserted:   total,
		Detail:     detail,
	}
	if err := s.syncLog.Record(ctx, entry); err != nil {
		log.Printf("[REINDEX] failed to record sync log: %v", err)
	}
}
