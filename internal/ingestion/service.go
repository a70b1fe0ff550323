package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/emissio/searchsync/internal/domain"
	"github.com/emissio/searchsync/internal/repository"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Syncer runs one differential sync after an import lands.
type Syncer interface {
	SyncSource(ctx context.Context, sourceName string) (domain.SyncResult, error)
}

// Service ingests emission-factor files into the relational store and
// triggers a differential sync for the touched source.
type Service struct {
	factors repository.EmissionFactorRepository
	sources repository.SourceRepository
	syncLog repository.SyncLogRepository
	syncer  Syncer
}

// NewService creates a new ingestion service.
func NewService(
	factors repository.EmissionFactorRepository,
	sources repository.SourceRepository,
	syncLog repository.SyncLogRepository,
	syncer Syncer,
) *Service {
	return &Service{
		factors: factors,
		sources: sources,
		syncLog: syncLog,
		syncer:  syncer,
	}
}

// Request describes the ingestion input.
type Request struct {
	SourceName  string
	AccessLevel domain.AccessLevel
	FileName    string
	Data        io.Reader
}

// Summary returns ingestion level metrics.
type Summary struct {
	TotalRows   int               `json:"totalRows"`
	ValidRows   int               `json:"validRows"`
	InvalidRows int               `json:"invalidRows"`
	Upserted    int               `json:"upserted"`
	IndexSync   domain.SyncResult `json:"indexSync"`
}

type tableData struct {
	headers []string
	rows    [][]string
}

// columnAliases maps accepted header spellings to canonical field names.
// Matching is case-insensitive after trimming.
var columnAliases = map[string]string{
	"object_id":      "object_id",
	"objectid":       "object_id",
	"id":             "object_id",
	"source":         "source",
	"factor_value":   "factor_value",
	"fe":             "factor_value",
	"value":          "factor_value",
	"unit":           "unit",
	"date":           "date",
	"year":           "date",
	"uncertainty":    "uncertainty",
	"name_fr":        "name_fr",
	"name_en":        "name_en",
	"description_fr": "description_fr",
	"description_en": "description_en",
	"sector_fr":      "sector_fr",
	"sector_en":      "sector_en",
	"subsector_fr":   "subsector_fr",
	"subsector_en":   "subsector_en",
	"scope_fr":       "scope_fr",
	"scope_en":       "scope_en",
	"location_fr":    "location_fr",
	"location_en":    "location_en",
	"comments_fr":    "comments_fr",
	"comments_en":    "comments_en",
}

// Ingest parses the uploaded file, upserts valid rows, and syncs the index.
// Rows that cannot be parsed are skipped and recorded in the sync log; a
// bad row never aborts the rest of the batch.
func (s *Service) Ingest(ctx context.Context, req Request) (Summary, error) {
	var summary Summary

	if strings.TrimSpace(req.SourceName) == "" {
		return summary, errors.New("source name is required")
	}
	if req.Data == nil {
		return summary, errors.New("data reader is required")
	}
	level := req.AccessLevel
	if level == "" {
		level = domain.AccessLevelFree
	}
	if !level.Valid() {
		return summary, fmt.Errorf("invalid access level %q", req.AccessLevel)
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return summary, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return summary, errors.New("file is empty")
	}

	table, err := parseTable(req.FileName, payload)
	if err != nil {
		return summary, err
	}
	if len(table.headers) == 0 {
		return summary, errors.New("no header row detected")
	}

	columns := resolveColumns(table.headers)
	if _, ok := columns["object_id"]; !ok {
		return summary, errors.New("object_id column is required")
	}

	summary.TotalRows = len(table.rows)

	var factors []domain.EmissionFactor
	for rowIdx, row := range table.rows {
		rowNumber := rowIdx + 2 // include header row (1-based)
		factor, err := buildFactor(req.SourceName, columns, row)
		if err != nil {
			s.logRowError(ctx, req, rowNumber, err)
			summary.InvalidRows++
			continue
		}
		factors = append(factors, factor)
		summary.ValidRows++
	}

	if err := s.sources.Ensure(ctx, domain.NewSource(req.SourceName, level)); err != nil {
		return summary, fmt.Errorf("failed to ensure source: %w", err)
	}

	upserted, err := s.factors.UpsertBatch(ctx, factors)
	if err != nil {
		return summary, fmt.Errorf("failed to persist emission factors: %w", err)
	}
	summary.Upserted = upserted

	sync, err := s.syncer.SyncSource(ctx, req.SourceName)
	if err != nil {
		// The rows are durable; the next sync picks them up.
		log.Printf("[INGEST] index sync failed for %s: %v", req.SourceName, err)
	}
	summary.IndexSync = sync

	return summary, nil
}

func (s *Service) logRowError(ctx context.Context, req Request, rowNumber int, rowErr error) {
	if s.syncLog == nil {
		return
	}
	entry := domain.SyncLogEntry{
		SourceName: req.SourceName,
		Operation:  domain.SyncOpIngestSkip,
		Status:     domain.SyncStatusSkipped,
		Detail:     fmt.Sprintf("%s row %d: %v", req.FileName, rowNumber, rowErr),
	}
	if err := s.syncLog.Record(ctx, entry); err != nil {
		log.Printf("[INGEST] failed to record skipped row: %v", err)
	}
}

// resolveColumns maps canonical field names to column indexes.
func resolveColumns(headers []string) map[string]int {
	columns := make(map[string]int)
	for idx, header := range headers {
		key := strings.ToLower(strings.TrimSpace(header))
		canonical, ok := columnAliases[key]
		if !ok {
			continue
		}
		if _, taken := columns[canonical]; taken {
			continue
		}
		columns[canonical] = idx
	}
	return columns
}

func buildFactor(sourceName string, columns map[string]int, row []string) (domain.EmissionFactor, error) {
	cell := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	optional := func(name string) *string {
		if value := cell(name); value != "" {
			return &value
		}
		return nil
	}

	objectID := cell("object_id")
	if objectID == "" {
		return domain.EmissionFactor{}, errors.New("missing object_id")
	}

	factor := domain.EmissionFactor{
		ObjectID:      objectID,
		Source:        sourceName,
		Unit:          optional("unit"),
		Uncertainty:   optional("uncertainty"),
		NameFR:        optional("name_fr"),
		NameEN:        optional("name_en"),
		DescriptionFR: optional("description_fr"),
		DescriptionEN: optional("description_en"),
		SectorFR:      optional("sector_fr"),
		SectorEN:      optional("sector_en"),
		SubsectorFR:   optional("subsector_fr"),
		SubsectorEN:   optional("subsector_en"),
		ScopeFR:       optional("scope_fr"),
		ScopeEN:       optional("scope_en"),
		LocationFR:    optional("location_fr"),
		LocationEN:    optional("location_en"),
		CommentsFR:    optional("comments_fr"),
		CommentsEN:    optional("comments_en"),
	}

	if raw := cell("factor_value"); raw != "" {
		value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return domain.EmissionFactor{}, fmt.Errorf("invalid factor_value %q", raw)
		}
		factor.FactorValue = &value
	}

	if raw := cell("date"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return domain.EmissionFactor{}, fmt.Errorf("invalid date %q", raw)
		}
		factor.Date = &value
	}

	return factor, nil
}

func parseTable(fileName string, payload []byte) (tableData, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return tableData{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) (tableData, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read csv: %w", err)
	}
	return normalizeTable(records)
}

func parseExcel(payload []byte) (tableData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return tableData{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableData{}, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return normalizeTable(rows)
}

func normalizeTable(records [][]string) (tableData, error) {
	if len(records) == 0 {
		return tableData{}, errors.New("no rows found in file")
	}

	var headers []string
	var rows [][]string
	for _, row := range records {
		if isEmptyRow(row) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(row))
			for i, value := range row {
				headers[i] = strings.TrimSpace(value)
			}
			continue
		}
		rows = append(rows, row)
	}

	if headers == nil {
		return tableData{}, errors.New("header row could not be detected")
	}
	return tableData{headers: headers, rows: rows}, nil
}

func isEmptyRow(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
