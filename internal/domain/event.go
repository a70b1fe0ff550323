package domain

import "encoding/json"

// ChangeType mirrors the relational store's row-level operations.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is one row-level change notification delivered by the
// database webhook. Record holds the new row for inserts/updates,
// OldRecord the previous row for updates/deletes. Both are kept as raw
// JSON objects; only the partition-key-bearing field is ever read.
type ChangeEvent struct {
	Type      ChangeType      `json:"type"`
	Table     string          `json:"table"`
	Schema    string          `json:"schema,omitempty"`
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}
