package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// LoadSettingsBundle reads a settings file from disk. Two layouts are
// accepted: a {settings, synonyms, rules} bundle, or a bare settings
// object.
func LoadSettingsBundle(path string) (SettingsBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SettingsBundle{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	var bundle SettingsBundle
	if err := json.Unmarshal(data, &bundle); err == nil &&
		(bundle.Settings != nil || len(bundle.Synonyms) > 0 || len(bundle.Rules) > 0) {
		return bundle, nil
	}

	var settings json.RawMessage
	if err := json.Unmarshal(data, &settings); err != nil {
		return SettingsBundle{}, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return SettingsBundle{Settings: settings}, nil
}

// ApplySettings pushes a bundle onto one index, waiting for each task so
// the caller knows the configuration is live when this returns.
func ApplySettings(ctx context.Context, client Client, waiter TaskWaiter, index string, bundle SettingsBundle) error {
	if bundle.Settings != nil {
		task, err := client.SetSettings(ctx, index, bundle.Settings)
		if err != nil {
			return err
		}
		if outcome, err := waiter.Wait(ctx, client, task); outcome != WaitCompleted {
			return settingsWaitError("settings", task, outcome, err)
		}
	}

	if len(bundle.Synonyms) > 0 {
		task, err := client.ReplaceSynonyms(ctx, index, bundle.Synonyms)
		if err != nil {
			return err
		}
		if outcome, err := waiter.Wait(ctx, client, task); outcome != WaitCompleted {
			return settingsWaitError("synonyms", task, outcome, err)
		}
	}

	if len(bundle.Rules) > 0 {
		task, err := client.ReplaceRules(ctx, index, bundle.Rules)
		if err != nil {
			return err
		}
		if outcome, err := waiter.Wait(ctx, client, task); outcome != WaitCompleted {
			return settingsWaitError("rules", task, outcome, err)
		}
	}

	return nil
}

func settingsWaitError(what string, task Task, outcome WaitOutcome, err error) error {
	if outcome == WaitTimedOut {
		return fmt.Errorf("%s task %d did not publish within the polling budget", what, task.ID)
	}
	return fmt.Errorf("%s task %d: %w", what, task.ID, err)
}
