package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBatchSize is the index API's per-request record ceiling.
const DefaultBatchSize = 1000

// RESTClient talks to the hosted index over its JSON REST API.
type RESTClient struct {
	appID      string
	apiKey     string
	baseURL    string
	batchSize  int
	httpClient *http.Client
}

// RESTOption customizes a RESTClient.
type RESTOption func(*RESTClient)

// WithBaseURL overrides the API endpoint (tests point this at a local server).
func WithBaseURL(baseURL string) RESTOption {
	return func(c *RESTClient) {
		c.baseURL = baseURL
	}
}

// WithBatchSize overrides the per-request record ceiling.
func WithBatchSize(size int) RESTOption {
	return func(c *RESTClient) {
		if size > 0 {
			c.batchSize = size
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) RESTOption {
	return func(c *RESTClient) {
		c.httpClient = client
	}
}

// NewRESTClient creates a client for the given application credentials.
func NewRESTClient(appID, apiKey string, opts ...RESTOption) *RESTClient {
	c := &RESTClient{
		appID:      appID,
		apiKey:     apiKey,
		baseURL:    fmt.Sprintf("https://%s-dsn.algolia.net/1/indexes", appID),
		batchSize:  DefaultBatchSize,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("index API error %d: %s", e.Status, e.Message)
}

func (c *RESTClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Algolia-Application-Id", c.appID)
	req.Header.Set("X-Algolia-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read index response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &apiError{Status: resp.StatusCode, Message: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode index response: %w", err)
		}
	}
	return nil
}

type batchOperation struct {
	Action string `json:"action"`
	Body   any    `json:"body"`
}

type batchResponse struct {
	TaskID    int64    `json:"taskID"`
	ObjectIDs []string `json:"objectIDs"`
}

// SaveObjects upserts objects in chunks of at most batchSize records,
// returning one task per chunk.
func (c *RESTClient) SaveObjects(ctx context.Context, index string, objects []Object) ([]Task, error) {
	var tasks []Task
	for start := 0; start < len(objects); start += c.batchSize {
		end := start + c.batchSize
		if end > len(objects) {
			end = len(objects)
		}

		requests := make([]batchOperation, 0, end-start)
		for _, obj := range objects[start:end] {
			requests = append(requests, batchOperation{Action: "updateObject", Body: obj})
		}

		var resp batchResponse
		path := fmt.Sprintf("/%s/batch", url.PathEscape(index))
		if err := c.do(ctx, http.MethodPost, path, map[string]any{"requests": requests}, &resp); err != nil {
			return tasks, fmt.Errorf("batch upsert failed at offset %d: %w", start, err)
		}
		tasks = append(tasks, Task{ID: resp.TaskID, Index: index})
	}
	return tasks, nil
}

// DeleteObjects removes objects by identifier in chunks of at most
// batchSize records.
func (c *RESTClient) DeleteObjects(ctx context.Context, index string, objectIDs []string) ([]Task, error) {
	var tasks []Task
	for start := 0; start < len(objectIDs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(objectIDs) {
			end = len(objectIDs)
		}

		requests := make([]batchOperation, 0, end-start)
		for _, id := range objectIDs[start:end] {
			requests = append(requests, batchOperation{
				Action: "deleteObject",
				Body:   map[string]string{"objectID": id},
			})
		}

		var resp batchResponse
		path := fmt.Sprintf("/%s/batch", url.PathEscape(index))
		if err := c.do(ctx, http.MethodPost, path, map[string]any{"requests": requests}, &resp); err != nil {
			return tasks, fmt.Errorf("batch delete failed at offset %d: %w", start, err)
		}
		tasks = append(tasks, Task{ID: resp.TaskID, Index: index})
	}
	return tasks, nil
}

type browseResponse struct {
	Hits []struct {
		ObjectID string `json:"objectID"`
	} `json:"hits"`
	Cursor string `json:"cursor"`
}

// BrowseObjectIDs scans the index with an exact filter, following the
// cursor until exhaustion. Browsing, unlike querying, is not capped by
// relevance pagination, so the listing is complete.
func (c *RESTClient) BrowseObjectIDs(ctx context.Context, index, filter string) ([]string, error) {
	var ids []string
	cursor := ""
	for {
		body := map[string]any{
			"filters":              filter,
			"attributesToRetrieve": []string{"objectID"},
			"hitsPerPage":          1000,
		}
		if cursor != "" {
			body["cursor"] = cursor
		}

		var resp browseResponse
		path := fmt.Sprintf("/%s/browse", url.PathEscape(index))
		if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
			return nil, fmt.Errorf("browse failed: %w", err)
		}
		for _, hit := range resp.Hits {
			ids = append(ids, hit.ObjectID)
		}
		if resp.Cursor == "" {
			return ids, nil
		}
		cursor = resp.Cursor
	}
}

// Settings returns the raw index settings.
func (c *RESTClient) Settings(ctx context.Context, index string) (json.RawMessage, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/%s/settings", url.PathEscape(index))
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	return raw, nil
}

type taskResponse struct {
	TaskID int64 `json:"taskID"`
}

// SetSettings replaces the index settings.
func (c *RESTClient) SetSettings(ctx context.Context, index string, settings json.RawMessage) (Task, error) {
	var resp taskResponse
	path := fmt.Sprintf("/%s/settings", url.PathEscape(index))
	if err := c.do(ctx, http.MethodPut, path, settings, &resp); err != nil {
		return Task{}, fmt.Errorf("failed to apply settings: %w", err)
	}
	return Task{ID: resp.TaskID, Index: index}, nil
}

type synonymSearchResponse struct {
	Hits   []json.RawMessage `json:"hits"`
	NbHits int               `json:"nbHits"`
}

// Synonyms lists all synonym definitions, paging through the search
// endpoint until every page has been read.
func (c *RESTClient) Synonyms(ctx context.Context, index string) ([]json.RawMessage, error) {
	return c.listRulesOrSynonyms(ctx, index, "synonyms")
}

// Rules lists all query rules.
func (c *RESTClient) Rules(ctx context.Context, index string) ([]json.RawMessage, error) {
	return c.listRulesOrSynonyms(ctx, index, "rules")
}

func (c *RESTClient) listRulesOrSynonyms(ctx context.Context, index, kind string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	page := 0
	for {
		var resp synonymSearchResponse
		path := fmt.Sprintf("/%s/%s/search", url.PathEscape(index), kind)
		body := map[string]any{"query": "", "page": page, "hitsPerPage": 1000}
		if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", kind, err)
		}
		all = append(all, resp.Hits...)
		if len(all) >= resp.NbHits || len(resp.Hits) == 0 {
			return all, nil
		}
		page++
	}
}

// ReplaceSynonyms replaces all synonym definitions in one batch.
func (c *RESTClient) ReplaceSynonyms(ctx context.Context, index string, synonyms []json.RawMessage) (Task, error) {
	var resp taskResponse
	path := fmt.Sprintf("/%s/synonyms/batch?replaceExistingSynonyms=true", url.PathEscape(index))
	if err := c.do(ctx, http.MethodPost, path, synonyms, &resp); err != nil {
		return Task{}, fmt.Errorf("failed to replace synonyms: %w", err)
	}
	return Task{ID: resp.TaskID, Index: index}, nil
}

// ReplaceRules replaces all query rules in one batch.
func (c *RESTClient) ReplaceRules(ctx context.Context, index string, rules []json.RawMessage) (Task, error) {
	var resp taskResponse
	path := fmt.Sprintf("/%s/rules/batch?clearExistingRules=true", url.PathEscape(index))
	if err := c.do(ctx, http.MethodPost, path, rules, &resp); err != nil {
		return Task{}, fmt.Errorf("failed to replace rules: %w", err)
	}
	return Task{ID: resp.TaskID, Index: index}, nil
}

// MoveIndex atomically renames source onto destination. The returned task
// is scoped to the destination index.
func (c *RESTClient) MoveIndex(ctx context.Context, source, destination string) (Task, error) {
	var resp taskResponse
	path := fmt.Sprintf("/%s/operation", url.PathEscape(source))
	body := map[string]string{"operation": "move", "destination": destination}
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return Task{}, fmt.Errorf("failed to move index: %w", err)
	}
	return Task{ID: resp.TaskID, Index: destination}, nil
}

type taskStatusResponse struct {
	Status string `json:"status"`
}

// TaskStatus returns the task's current status string.
func (c *RESTClient) TaskStatus(ctx context.Context, index string, taskID int64) (string, error) {
	var resp taskStatusResponse
	path := fmt.Sprintf("/%s/task/%d", url.PathEscape(index), taskID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to fetch task status: %w", err)
	}
	return resp.Status, nil
}

var _ Client = (*RESTClient)(nil)
