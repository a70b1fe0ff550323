package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/emissio/searchsync/internal/reindexer"
	"github.com/emissio/searchsync/internal/repository"
	"github.com/emissio/searchsync/internal/searchindex"
)

// Handler exposes operator endpoints: full reindex, settings apply, and
// sync-log inspection.
type Handler struct {
	reindexer    *reindexer.Service
	syncLog      repository.SyncLogRepository
	index        searchindex.Client
	waiter       searchindex.TaskWaiter
	indexName    string
	settingsPath string
}

// NewHTTPHandler wires the admin endpoints.
func NewHTTPHandler(
	reindexSvc *reindexer.Service,
	syncLog repository.SyncLogRepository,
	index searchindex.Client,
	waiter searchindex.TaskWaiter,
	indexName, settingsPath string,
) http.Handler {
	return &Handler{
		reindexer:    reindexSvc,
		syncLog:      syncLog,
		index:        index,
		waiter:       waiter,
		indexName:    indexName,
		settingsPath: settingsPath,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/reindex"):
		h.handleReindex(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/settings"):
		h.handleApplySettings(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/sync-log"):
		h.handleSyncLog(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handleReindex(w http.ResponseWriter, r *http.Request) {
	// An empty or absent body means "reindex the configured index".
	var req reindexer.Request
	_ = json.NewDecoder(r.Body).Decode(&req)

	result, err := h.reindexer.Reindex(r.Context(), req)
	if err != nil {
		var stepErr *reindexer.StepError
		if errors.As(err, &stepErr) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"status": "failed",
				"step":   string(stepErr.Step),
				"error":  stepErr.Err.Error(),
			})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type applySettingsPayload struct {
	IndexName string `json:"indexName"`
}

func (h *Handler) handleApplySettings(w http.ResponseWriter, r *http.Request) {
	if h.settingsPath == "" {
		http.Error(w, "no settings file configured", http.StatusConflict)
		return
	}

	var payload applySettingsPayload
	_ = json.NewDecoder(r.Body).Decode(&payload)
	index := payload.IndexName
	if index == "" {
		index = h.indexName
	}

	bundle, err := searchindex.LoadSettingsBundle(h.settingsPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := searchindex.ApplySettings(r.Context(), h.index, h.waiter, index, bundle); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"index":    index,
		"settings": bundle.Settings != nil,
		"synonyms": len(bundle.Synonyms),
		"rules":    len(bundle.Rules),
	})
}

func (h *Handler) handleSyncLog(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	entries, err := h.syncLog.List(r.Context(), query.Get("source"), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
