package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every TEAMSRELAY_ env var that Load() reads.
var allConfigKeys = []string{
	"TEAMSRELAY_TENANT_ID",
	"TEAMSRELAY_CLIENT_ID",
	"TEAMSRELAY_CLIENT_SECRET",
	"TEAMSRELAY_CHAT_ID",
	"TEAMSRELAY_POLL_INTERVAL",
	"TEAMSRELAY_LISTEN_ADDR",
	"TEAMSRELAY_DB_PATH",
	"TEAMSRELAY_DOCS_DIR",
	"TEAMSRELAY_PUBLIC_BASE_URL",
	"TEAMSRELAY_GRAPH_BASE_URL",
	"TEAMSRELAY_LOGIN_BASE_URL",
}

// isolateConfigEnv saves and unsets all TEAMSRELAY_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEAMSRELAY_TENANT_ID", "tenant-123")
	t.Setenv("TEAMSRELAY_CLIENT_ID", "client-abc")
	t.Setenv("TEAMSRELAY_CLIENT_SECRET", "s3cret")
	t.Setenv("TEAMSRELAY_CHAT_ID", "19:chat@thread.v2")
	t.Setenv("TEAMSRELAY_POLL_INTERVAL", "30s")
	t.Setenv("TEAMSRELAY_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("TEAMSRELAY_DB_PATH", "/tmp/test.db")
	t.Setenv("TEAMSRELAY_DOCS_DIR", "/srv/docs")
	t.Setenv("TEAMSRELAY_PUBLIC_BASE_URL", "https://board.example.com/")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "tenant-123", cfg.TenantID)
	assert.Equal(t, "client-abc", cfg.ClientID)
	assert.Equal(t, "s3cret", cfg.ClientSecret)
	assert.Equal(t, "19:chat@thread.v2", cfg.ChatID)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "/srv/docs", cfg.DocsDir)
	assert.Equal(t, "https://board.example.com", cfg.PublicBaseURL)
	assert.True(t, cfg.HasGraphCredentials())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "teamsrelay.db", cfg.DBPath)
	assert.Equal(t, "documents", cfg.DocsDir)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.PublicBaseURL)
	assert.Equal(t, "https://graph.microsoft.com/v1.0", cfg.GraphBaseURL)
	assert.Equal(t, "https://login.microsoftonline.com", cfg.LoginBaseURL)
	assert.False(t, cfg.HasGraphCredentials())
}

func TestLoad_PublicBaseURLFollowsListenAddr(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEAMSRELAY_LISTEN_ADDR", "10.0.0.5:8000")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000", cfg.PublicBaseURL)
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEAMSRELAY_POLL_INTERVAL", "sixty seconds")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEAMSRELAY_POLL_INTERVAL")
}

func TestLoad_NegativePollInterval(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEAMSRELAY_POLL_INTERVAL", "-10s")

	_, err := Load()

	require.Error(t, err)
}

func TestHasGraphCredentials_PartialCredentials(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEAMSRELAY_TENANT_ID", "tenant-123")
	t.Setenv("TEAMSRELAY_CLIENT_ID", "client-abc")

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.HasGraphCredentials())
}
