package searchindex

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSettingsBundleFullLayout(t *testing.T) {
	path := writeTempFile(t, `{
		"settings": {"searchableAttributes": ["name_fr", "name_en"]},
		"synonyms": [{"objectID": "syn-1", "type": "synonym", "synonyms": ["CO2", "carbone"]}],
		"rules": [{"objectID": "rule-1"}]
	}`)

	bundle, err := LoadSettingsBundle(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if bundle.Settings == nil {
		t.Fatalf("settings missing")
	}
	if len(bundle.Synonyms) != 1 || len(bundle.Rules) != 1 {
		t.Fatalf("unexpected bundle: %d synonyms, %d rules", len(bundle.Synonyms), len(bundle.Rules))
	}
}

func TestLoadSettingsBundleBareSettings(t *testing.T) {
	path := writeTempFile(t, `{"searchableAttributes": ["name_fr"], "attributesForFaceting": ["Source"]}`)

	bundle, err := LoadSettingsBundle(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if bundle.Settings == nil {
		t.Fatalf("bare settings object not recognized")
	}
	var settings map[string]any
	if err := json.Unmarshal(bundle.Settings, &settings); err != nil {
		t.Fatalf("settings not preserved: %v", err)
	}
	if _, ok := settings["attributesForFaceting"]; !ok {
		t.Fatalf("settings content lost: %v", settings)
	}
}

func TestLoadSettingsBundleMissingFile(t *testing.T) {
	if _, err := LoadSettingsBundle(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestApplySettingsWaitsForEveryTask(t *testing.T) {
	client := &applyClient{}
	waiter := NewTaskWaiter(2, time.Millisecond)

	bundle := SettingsBundle{
		Settings: json.RawMessage(`{"searchableAttributes":["name_fr"]}`),
		Synonyms: []json.RawMessage{json.RawMessage(`{"objectID":"syn-1"}`)},
		Rules:    []json.RawMessage{json.RawMessage(`{"objectID":"rule-1"}`)},
	}

	if err := ApplySettings(context.Background(), client, waiter, "ef_all", bundle); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !client.settingsSet || !client.synonymsSet || !client.rulesSet {
		t.Fatalf("not all parts applied: %+v", client)
	}
	if client.polls != 3 {
		t.Fatalf("expected one poll per task, got %d", client.polls)
	}
}

func TestApplySettingsFailsOnStuckTask(t *testing.T) {
	client := &applyClient{stuck: true}
	waiter := NewTaskWaiter(2, time.Millisecond)

	bundle := SettingsBundle{Settings: json.RawMessage(`{}`)}
	if err := ApplySettings(context.Background(), client, waiter, "ef_all", bundle); err == nil {
		t.Fatalf("expected error for unpublished task")
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

type applyClient struct {
	Client

	stuck       bool
	settingsSet bool
	synonymsSet bool
	rulesSet    bool
	polls       int
}

func (c *applyClient) SetSettings(ctx context.Context, index string, settings json.RawMessage) (Task, error) {
	c.settingsSet = true
	return Task{ID: 1, Index: index}, nil
}

func (c *applyClient) ReplaceSynonyms(ctx context.Context, index string, synonyms []json.RawMessage) (Task, error) {
	c.synonymsSet = true
	return Task{ID: 2, Index: index}, nil
}

func (c *applyClient) ReplaceRules(ctx context.Context, index string, rules []json.RawMessage) (Task, error) {
	c.rulesSet = true
	return Task{ID: 3, Index: index}, nil
}

func (c *applyClient) TaskStatus(ctx context.Context, index string, taskID int64) (string, error) {
	c.polls++
	if c.stuck {
		return "notPublished", nil
	}
	return "published", nil
}
