package searchindex

import (
	"context"
	"encoding/json"
)

// Object is one index record payload. The objectID key must always be set
// by the caller; the index never generates identifiers for us.
type Object map[string]any

// Task references an asynchronous index operation. Every mutating call
// returns one; callers that need the operation to be visible must wait for
// it to reach the published state.
type Task struct {
	ID    int64
	Index string
}

// Client is the hosted search index API, reduced to the operations the
// synchronization pipeline needs. Implementations must chunk batch writes
// to the API's request ceiling internally and return one task per chunk.
type Client interface {
	// SaveObjects upserts objects into the index. Unchanged objects are
	// rewritten rather than skipped; the operation is idempotent.
	SaveObjects(ctx context.Context, index string, objects []Object) ([]Task, error)

	// DeleteObjects removes objects by identifier.
	DeleteObjects(ctx context.Context, index string, objectIDs []string) ([]Task, error)

	// BrowseObjectIDs lists every object identifier matching an exact
	// filter expression. This is a full scan, not a relevance query, so
	// results are never truncated by ranking.
	BrowseObjectIDs(ctx context.Context, index, filter string) ([]string, error)

	// Settings returns the index settings as raw JSON.
	Settings(ctx context.Context, index string) (json.RawMessage, error)

	// SetSettings replaces the index settings.
	SetSettings(ctx context.Context, index string, settings json.RawMessage) (Task, error)

	// Synonyms lists all synonym definitions.
	Synonyms(ctx context.Context, index string) ([]json.RawMessage, error)

	// ReplaceSynonyms replaces all synonym definitions.
	ReplaceSynonyms(ctx context.Context, index string, synonyms []json.RawMessage) (Task, error)

	// Rules lists all query rules.
	Rules(ctx context.Context, index string) ([]json.RawMessage, error)

	// ReplaceRules replaces all query rules.
	ReplaceRules(ctx context.Context, index string, rules []json.RawMessage) (Task, error)

	// MoveIndex atomically renames source onto destination, replacing the
	// destination's contents in one step. The source index is consumed.
	MoveIndex(ctx context.Context, source, destination string) (Task, error)

	// TaskStatus returns the current status string of a task
	// ("published" when terminal).
	TaskStatus(ctx context.Context, index string, taskID int64) (string, error)
}

// SettingsBundle groups everything that must survive a full reindex
// byte-identical: settings, synonyms and rules.
type SettingsBundle struct {
	Settings json.RawMessage   `json:"settings,omitempty"`
	Synonyms []json.RawMessage `json:"synonyms,omitempty"`
	Rules    []json.RawMessage `json:"rules,omitempty"`
}
