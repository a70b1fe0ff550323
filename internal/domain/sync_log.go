package domain

import "time"

// SyncLogEntry records one per-source sync outcome or one skipped
// ingestion row, for operator inspection.
type SyncLogEntry struct {
	ID         int64      `json:"id"`
	SourceName string     `json:"source_name"`
	Operation  string     `json:"operation"`
	Status     SyncStatus `json:"status"`
	Upserted   int        `json:"upserted"`
	Deleted    int        `json:"deleted"`
	Detail     string     `json:"detail,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Sync log operation labels.
const (
	SyncOpDifferential = "differential_sync"
	SyncOpFullReindex  = "full_reindex"
	SyncOpIngestSkip   = "ingest_row_skipped"
)
