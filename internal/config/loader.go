package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/emissio/searchsync/internal/db"
	"github.com/spf13/viper"
)

// SearchConfig carries the hosted search index credentials and tuning knobs.
// It is resolved once at startup and injected into every component that
// talks to the index; nothing reads the environment mid-function.
type SearchConfig struct {
	AppID            string
	APIKey           string
	IndexName        string
	StagingSuffix    string
	BatchSize        int
	PageSize         int
	TaskPollAttempts int
	TaskPollInterval time.Duration
	SettingsPath     string
}

// Validate fails fast on missing credentials so a request never gets as far
// as touching a partition key with a half-configured client.
func (c SearchConfig) Validate() error {
	if c.AppID == "" || c.APIKey == "" {
		return errors.New("search index credentials not configured")
	}
	if c.IndexName == "" {
		return errors.New("search index name not configured")
	}
	return nil
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// WebhookConfig holds the shared secret for database change notifications.
// An empty secret disables the check (trusted-network deployments).
type WebhookConfig struct {
	Secret string
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Database db.Config
	Search   SearchConfig
	Webhook  WebhookConfig
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: db.DefaultConfig(),
		Search: SearchConfig{
			IndexName:        "ef_all",
			StagingSuffix:    "_tmp",
			BatchSize:        1000,
			PageSize:         5000,
			TaskPollAttempts: 120,
			TaskPollInterval: time.Second,
		},
	}
}

// Load reads config.yaml from configPath and applies environment overrides.
func Load(configPath string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()             // allow environment overrides
	v.SetEnvPrefix("SEARCHSYNC") // map env vars like SEARCHSYNC_SEARCH_API_KEY

	v.BindEnv("server.addr")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("search.app_id", "SEARCHSYNC_SEARCH_APP_ID")
	v.BindEnv("search.api_key", "SEARCHSYNC_SEARCH_API_KEY")
	v.BindEnv("search.index_name", "SEARCHSYNC_SEARCH_INDEX_NAME")
	v.BindEnv("webhook.secret", "SEARCHSYNC_WEBHOOK_SECRET")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Use defaults + env.
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}

	if v.IsSet("search.app_id") {
		cfg.Search.AppID = v.GetString("search.app_id")
	}
	if v.IsSet("search.api_key") {
		cfg.Search.APIKey = v.GetString("search.api_key")
	}
	if v.IsSet("search.index_name") {
		cfg.Search.IndexName = v.GetString("search.index_name")
	}
	if v.IsSet("search.staging_suffix") {
		cfg.Search.StagingSuffix = v.GetString("search.staging_suffix")
	}
	if v.IsSet("search.batch_size") {
		cfg.Search.BatchSize = v.GetInt("search.batch_size")
	}
	if v.IsSet("search.page_size") {
		cfg.Search.PageSize = v.GetInt("search.page_size")
	}
	if v.IsSet("search.task_poll_attempts") {
		cfg.Search.TaskPollAttempts = v.GetInt("search.task_poll_attempts")
	}
	if v.IsSet("search.task_poll_interval") {
		cfg.Search.TaskPollInterval = v.GetDuration("search.task_poll_interval")
	}
	if v.IsSet("search.settings_path") {
		cfg.Search.SettingsPath = v.GetString("search.settings_path")
	}

	if v.IsSet("webhook.secret") {
		cfg.Webhook.Secret = v.GetString("webhook.secret")
	}

	return cfg, nil
}
