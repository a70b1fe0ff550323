package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/emissio/searchsync/internal/domain"
)

// partitionKeyFields maps each watched table to the field holding the
// partition key in its row payloads. Adding a new watched table means
// adding an entry here; the field name is never inferred.
var partitionKeyFields = map[string][]string{
	"emission_factors":             {"Source", "source"},
	"sources":                      {"source_name"},
	"workspace_source_assignments": {"source_name"},
}

// SourceSyncer runs differential syncs for a set of partition keys.
type SourceSyncer interface {
	SyncSources(ctx context.Context, sourceNames []string) map[string]domain.SyncResult
}

// Handler turns database change notifications into per-source differential
// syncs. One request may carry one event or a batch; the touched partition
// keys are deduplicated before syncing.
type Handler struct {
	syncer SourceSyncer
	secret string
}

// NewHTTPHandler wraps the syncer with a POST endpoint. secret, when
// non-empty, must match the X-Webhook-Secret request header.
func NewHTTPHandler(syncer SourceSyncer, secret string) http.Handler {
	return &Handler{syncer: syncer, secret: secret}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.secret != "" && r.Header.Get("X-Webhook-Secret") != h.secret {
		http.Error(w, "invalid webhook secret", http.StatusUnauthorized)
		return
	}

	events, err := decodeEvents(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	sources := ExtractSources(events)
	log.Printf("[WEBHOOK] %d events touching %d sources", len(events), len(sources))

	results := h.syncer.SyncSources(r.Context(), sources)

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"sources": sources,
		"synced":  results,
	})
}

func decodeEvents(body io.Reader) ([]domain.ChangeEvent, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var events []domain.ChangeEvent
		if err := json.Unmarshal(raw, &events); err != nil {
			return nil, err
		}
		return events, nil
	}

	var event domain.ChangeEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, err
	}
	return []domain.ChangeEvent{event}, nil
}

// ExtractSources resolves the deduplicated partition keys touched by a
// batch of change events, preserving first-seen order. Events on unknown
// tables are ignored.
func ExtractSources(events []domain.ChangeEvent) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, event := range events {
		fields, ok := partitionKeyFields[tableName(event.Table)]
		if !ok {
			continue
		}

		name := pickField(event.Record, fields)
		if name == "" {
			name = pickField(event.OldRecord, fields)
		}
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		sources = append(sources, name)
	}
	return sources
}

// tableName strips an optional "schema:" prefix from webhook table names.
func tableName(raw string) string {
	if idx := strings.LastIndex(raw, ":"); idx >= 0 {
		return strings.TrimSpace(raw[idx+1:])
	}
	return strings.TrimSpace(raw)
}

func pickField(record json.RawMessage, fields []string) string {
	if len(record) == 0 {
		return ""
	}
	var row map[string]json.RawMessage
	if err := json.Unmarshal(record, &row); err != nil {
		return ""
	}
	for _, field := range fields {
		raw, ok := row[field]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		if value != "" {
			return value
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
