// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	ChatID       string

	PollInterval  time.Duration
	ListenAddr    string
	DBPath        string
	DocsDir       string
	PublicBaseURL string

	GraphBaseURL string
	LoginBaseURL string
}

// HasGraphCredentials returns true when tenant, client ID, client secret, and
// chat ID are all present. Used by the composition root to decide whether to
// start the sync service or serve the HTTP surface alone.
func (c *Config) HasGraphCredentials() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != "" && c.ChatID != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. Graph credentials (TEAMSRELAY_TENANT_ID, TEAMSRELAY_CLIENT_ID,
// TEAMSRELAY_CLIENT_SECRET, TEAMSRELAY_CHAT_ID) are optional; without them the
// service starts but upstream polling is disabled. Optional variables with
// defaults: TEAMSRELAY_POLL_INTERVAL (60s), TEAMSRELAY_LISTEN_ADDR
// (127.0.0.1:8080), TEAMSRELAY_DB_PATH (teamsrelay.db), TEAMSRELAY_DOCS_DIR
// (documents), TEAMSRELAY_PUBLIC_BASE_URL (http://<listen addr>).
func Load() (*Config, error) {
	cfg := &Config{
		TenantID:     os.Getenv("TEAMSRELAY_TENANT_ID"),
		ClientID:     os.Getenv("TEAMSRELAY_CLIENT_ID"),
		ClientSecret: os.Getenv("TEAMSRELAY_CLIENT_SECRET"),
		ChatID:       os.Getenv("TEAMSRELAY_CHAT_ID"),
	}

	cfg.PollInterval = 60 * time.Second
	if v, ok := os.LookupEnv("TEAMSRELAY_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TEAMSRELAY_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("TEAMSRELAY_POLL_INTERVAL must be positive, got %q", v)
		}
		cfg.PollInterval = parsed
	}

	cfg.ListenAddr = "127.0.0.1:8080"
	if v, ok := os.LookupEnv("TEAMSRELAY_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}

	cfg.DBPath = "teamsrelay.db"
	if v, ok := os.LookupEnv("TEAMSRELAY_DB_PATH"); ok {
		cfg.DBPath = v
	}

	cfg.DocsDir = "documents"
	if v, ok := os.LookupEnv("TEAMSRELAY_DOCS_DIR"); ok {
		cfg.DocsDir = v
	}

	cfg.PublicBaseURL = "http://" + cfg.ListenAddr
	if v, ok := os.LookupEnv("TEAMSRELAY_PUBLIC_BASE_URL"); ok {
		cfg.PublicBaseURL = strings.TrimRight(v, "/")
	}

	cfg.GraphBaseURL = "https://graph.microsoft.com/v1.0"
	if v, ok := os.LookupEnv("TEAMSRELAY_GRAPH_BASE_URL"); ok {
		cfg.GraphBaseURL = strings.TrimRight(v, "/")
	}

	cfg.LoginBaseURL = "https://login.microsoftonline.com"
	if v, ok := os.LookupEnv("TEAMSRELAY_LOGIN_BASE_URL"); ok {
		cfg.LoginBaseURL = strings.TrimRight(v, "/")
	}

	return cfg, nil
}
