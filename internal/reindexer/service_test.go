package reindexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/emissio/searchsync/internal/domain"
	"github.com/emissio/searchsync/internal/repository"
	"github.com/emissio/searchsync/internal/searchindex"
)

func TestReindexStagesEverythingThenSwaps(t *testing.T) {
	projections := newStubProjections(2500)
	index := newFakeIndex()
	index.synonyms = []json.RawMessage{json.RawMessage(`{"objectID":"syn-1"}`)}
	syncLog := &stubSyncLog{}

	service := NewService(projections, syncLog, index, testWaiter(), "ef_all", "_tmp", 1000)

	result, err := service.Reindex(context.Background(), Request{})
	if err != nil {
		t.Fatalf("reindex failed: %v", err)
	}

	if result.Status != "ok" || result.IndexName != "ef_all" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.TotalRecordsIndexed != 2500 {
		t.Fatalf("expected 2500 records indexed, got %d", result.TotalRecordsIndexed)
	}

	// Pages of 1000, 1000 and 500, all staged before the swap.
	if got := index.savedPages["ef_all_tmp"]; len(got) != 3 || got[0] != 1000 || got[1] != 1000 || got[2] != 500 {
		t.Fatalf("unexpected staging pages: %v", got)
	}
	if len(index.savedPages["ef_all"]) != 0 {
		t.Fatalf("reindex wrote directly to production: %v", index.savedPages["ef_all"])
	}

	if index.settingsAppliedTo != "ef_all_tmp" {
		t.Fatalf("settings applied to %q, want staging", index.settingsAppliedTo)
	}
	if index.synonymsAppliedTo != "ef_all_tmp" {
		t.Fatalf("synonyms applied to %q, want staging", index.synonymsAppliedTo)
	}
	if index.rulesAppliedTo != "" {
		t.Fatalf("rules applied with no rules defined")
	}

	if len(index.moves) != 1 {
		t.Fatalf("expected exactly one move, got %d", len(index.moves))
	}
	if index.moves[0] != [2]string{"ef_all_tmp", "ef_all"} {
		t.Fatalf("unexpected move: %v", index.moves[0])
	}
	if !projections.refreshedAll {
		t.Fatalf("projection was not refreshed")
	}

	if len(syncLog.entries) != 1 || syncLog.entries[0].Operation != domain.SyncOpFullReindex {
		t.Fatalf("unexpected sync log: %+v", syncLog.entries)
	}
	if syncLog.entries[0].Upserted != 2500 {
		t.Fatalf("log recorded %d upserts, want 2500", syncLog.entries[0].Upserted)
	}
}

func TestReindexReadersSeeOldContentUntilSwap(t *testing.T) {
	projections := newStubProjections(4)
	index := newFakeIndex()
	index.contents["ef_all"] = []string{"old-1", "old-2", "old-3"}

	// Snapshot what a production reader would see after every staged page.
	var midReindexReads [][]string
	index.onSave = func() {
		snapshot := append([]string(nil), index.contents["ef_all"]...)
		midReindexReads = append(midReindexReads, snapshot)
	}

	service := NewService(projections, nil, index, testWaiter(), "ef_all", "_tmp", 2)

	result, err := service.Reindex(context.Background(), Request{})
	if err != nil {
		t.Fatalf("reindex failed: %v", err)
	}
	if result.TotalRecordsIndexed != 4 {
		t.Fatalf("expected 4 records, got %d", result.TotalRecordsIndexed)
	}

	// Two pages of two records, and a reader between every page saw only
	// the old content.
	if len(midReindexReads) != 2 {
		t.Fatalf("expected 2 mid-reindex reads, got %d", len(midReindexReads))
	}
	for i, read := range midReindexReads {
		if len(read) != 3 || read[0] != "old-1" {
			t.Fatalf("read %d observed partially rebuilt index: %v", i, read)
		}
	}

	// After the swap the new content is visible, all at once, and the
	// staging index is consumed.
	after := index.contents["ef_all"]
	if len(after) != 4 || after[0] != "rec-00000" || after[3] != "rec-00003" {
		t.Fatalf("unexpected production content after swap: %v", after)
	}
	if _, ok := index.contents["ef_all_tmp"]; ok {
		t.Fatalf("staging index survived the swap")
	}
}

func TestReindexRequestOverridesIndexAndSuffix(t *testing.T) {
	projections := newStubProjections(1)
	index := newFakeIndex()

	service := NewService(projections, nil, index, testWaiter(), "ef_all", "_tmp", 1000)

	result, err := service.Reindex(context.Background(), Request{IndexName: "ef_fr", StagingSuffix: "_rebuild"})
	if err != nil {
		t.Fatalf("reindex failed: %v", err)
	}
	if result.IndexName != "ef_fr" {
		t.Fatalf("unexpected index name %q", result.IndexName)
	}
	if index.moves[0] != [2]string{"ef_fr_rebuild", "ef_fr"} {
		t.Fatalf("unexpected move: %v", index.moves[0])
	}
}

func TestReindexSettingsFailureStopsBeforeStaging(t *testing.T) {
	projections := newStubProjections(10)
	index := newFakeIndex()
	index.settingsErr = errors.New("index unreachable")
	syncLog := &stubSyncLog{}

	service := NewService(projections, syncLog, index, testWaiter(), "ef_all", "_tmp", 1000)

	_, err := service.Reindex(context.Background(), Request{})
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if stepErr.Step != StepConfigureStaging {
		t.Fatalf("expected configure_staging step, got %s", stepErr.Step)
	}
	if len(index.savedPages["ef_all_tmp"]) != 0 {
		t.Fatalf("staging was written after a configuration failure")
	}
	if len(index.moves) != 0 {
		t.Fatalf("swap ran after a configuration failure")
	}
	if len(syncLog.entries) != 1 || syncLog.entries[0].Status != domain.SyncStatusFailed {
		t.Fatalf("unexpected sync log: %+v", syncLog.entries)
	}
}

func TestReindexTaskTimeoutFailsStreamUpsertWithoutSwap(t *testing.T) {
	projections := newStubProjections(10)
	index := newFakeIndex()
	// Settings tasks publish; batch upsert tasks never do.
	index.stuckTasks = map[int64]bool{batchTaskID: true}

	service := NewService(projections, nil, index, testWaiter(), "ef_all", "_tmp", 1000)

	_, err := service.Reindex(context.Background(), Request{})
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if stepErr.Step != StepStreamUpsert {
		t.Fatalf("expected stream_upsert step, got %s", stepErr.Step)
	}
	// The staging index keeps what was written, for diagnosis.
	if len(index.savedPages["ef_all_tmp"]) != 1 {
		t.Fatalf("expected one staged page, got %v", index.savedPages["ef_all_tmp"])
	}
	if len(index.moves) != 0 {
		t.Fatalf("swap ran after a staging failure")
	}
}

func TestReindexSwapFailure(t *testing.T) {
	projections := newStubProjections(5)
	index := newFakeIndex()
	index.moveErr = errors.New("move rejected")

	service := NewService(projections, nil, index, testWaiter(), "ef_all", "_tmp", 1000)

	_, err := service.Reindex(context.Background(), Request{})
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if stepErr.Step != StepSwap {
		t.Fatalf("expected swap step, got %s", stepErr.Step)
	}
}

func TestReindexEmptyProjection(t *testing.T) {
	projections := newStubProjections(0)
	index := newFakeIndex()

	service := NewService(projections, nil, index, testWaiter(), "ef_all", "_tmp", 1000)

	result, err := service.Reindex(context.Background(), Request{})
	if err != nil {
		t.Fatalf("reindex failed: %v", err)
	}
	if result.TotalRecordsIndexed != 0 {
		t.Fatalf("expected 0 records, got %d", result.TotalRecordsIndexed)
	}
	// An empty projection still swaps: the (empty) staging index replaces
	// production, mirroring the relational truth.
	if len(index.moves) != 1 {
		t.Fatalf("expected swap to run, moves: %v", index.moves)
	}
}

func testWaiter() searchindex.TaskWaiter {
	return searchindex.NewTaskWaiter(2, time.Millisecond)
}

const (
	settingsTaskID = int64(100)
	batchTaskID    = int64(200)
	moveTaskID     = int64(300)
)

type stubProjections struct {
	records      []domain.SearchRecord
	refreshedAll bool
}

func newStubProjections(n int) *stubProjections {
	records := make([]domain.SearchRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, domain.SearchRecord{
			ObjectID: fmt.Sprintf("rec-%05d", i),
			Source:   "ADEME",
		})
	}
	return &stubProjections{records: records}
}

func (s *stubProjections) Refresh(ctx context.Context, sourceName string) error {
	return errors.New("not implemented")
}

func (s *stubProjections) RefreshAll(ctx context.Context) error {
	s.refreshedAll = true
	return nil
}

func (s *stubProjections) ListBySource(ctx context.Context, sourceName string) ([]domain.SearchRecord, error) {
	return nil, errors.New("not implemented")
}

func (s *stubProjections) ListPage(ctx context.Context, offset, limit int) ([]domain.SearchRecord, error) {
	if offset >= len(s.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.records) {
		end = len(s.records)
	}
	return s.records[offset:end], nil
}

func (s *stubProjections) Count(ctx context.Context) (int64, error) {
	return int64(len(s.records)), nil
}

type stubSyncLog struct {
	entries []domain.SyncLogEntry
}

func (s *stubSyncLog) Record(ctx context.Context, entry domain.SyncLogEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubSyncLog) List(ctx context.Context, sourceName string, limit, offset int) ([]domain.SyncLogEntry, error) {
	return s.entries, nil
}

// fakeIndex tracks which index every write lands on and the object ids each
// index holds; tasks publish unless listed in stuckTasks. onSave, when set,
// runs after every batch write, standing in for a reader hitting the index
// mid-reindex.
type fakeIndex struct {
	searchindex.Client

	synonyms []json.RawMessage
	rules    []json.RawMessage

	settingsErr error
	moveErr     error
	stuckTasks  map[int64]bool
	onSave      func()

	contents          map[string][]string
	savedPages        map[string][]int
	settingsAppliedTo string
	synonymsAppliedTo string
	rulesAppliedTo    string
	moves             [][2]string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		savedPages: make(map[string][]int),
		contents:   make(map[string][]string),
	}
}

func (f *fakeIndex) SaveObjects(ctx context.Context, index string, objects []searchindex.Object) ([]searchindex.Task, error) {
	f.savedPages[index] = append(f.savedPages[index], len(objects))
	for _, obj := range objects {
		if id, ok := obj["objectID"].(string); ok {
			f.contents[index] = append(f.contents[index], id)
		}
	}
	if f.onSave != nil {
		f.onSave()
	}
	return []searchindex.Task{{ID: batchTaskID, Index: index}}, nil
}

func (f *fakeIndex) Settings(ctx context.Context, index string) (json.RawMessage, error) {
	if f.settingsErr != nil {
		return nil, f.settingsErr
	}
	return json.RawMessage(`{"searchableAttributes":["name_fr","name_en"]}`), nil
}

func (f *fakeIndex) SetSettings(ctx context.Context, index string, settings json.RawMessage) (searchindex.Task, error) {
	f.settingsAppliedTo = index
	return searchindex.Task{ID: settingsTaskID, Index: index}, nil
}

func (f *fakeIndex) Synonyms(ctx context.Context, index string) ([]json.RawMessage, error) {
	return f.synonyms, nil
}

func (f *fakeIndex) ReplaceSynonyms(ctx context.Context, index string, synonyms []json.RawMessage) (searchindex.Task, error) {
	f.synonymsAppliedTo = index
	return searchindex.Task{ID: settingsTaskID, Index: index}, nil
}

func (f *fakeIndex) Rules(ctx context.Context, index string) ([]json.RawMessage, error) {
	return f.rules, nil
}

func (f *fakeIndex) ReplaceRules(ctx context.Context, index string, rules []json.RawMessage) (searchindex.Task, error) {
	f.rulesAppliedTo = index
	return searchindex.Task{ID: settingsTaskID, Index: index}, nil
}

func (f *fakeIndex) MoveIndex(ctx context.Context, source, destination string) (searchindex.Task, error) {
	if f.moveErr != nil {
		return searchindex.Task{}, f.moveErr
	}
	f.moves = append(f.moves, [2]string{source, destination})
	f.contents[destination] = f.contents[source]
	delete(f.contents, source)
	return searchindex.Task{ID: moveTaskID, Index: destination}, nil
}

func (f *fakeIndex) TaskStatus(ctx context.Context, index string, taskID int64) (string, error) {
	if f.stuckTasks[taskID] {
		return "notPublished", nil
	}
	return "published", nil
}

var _ repository.ProjectionRepository = (*stubProjections)(nil)
var _ repository.SyncLogRepository = (*stubSyncLog)(nil)
