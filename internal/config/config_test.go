package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.SyncLastDays)
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.RetryDelay)
	assert.True(t, cfg.WifiOnly)
}

func TestLoad_JSONOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"server_base_url": "https://photos.example.org",
		"sync_last_days": 7,
		"retry_delay": "30s",
		"wifi_only": false
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://photos.example.org", cfg.ServerBaseURL)
	assert.Equal(t, 7, cfg.SyncLastDays)
	assert.Equal(t, 30*time.Second, cfg.RetryDelay)
	assert.False(t, cfg.WifiOnly)

	// untouched fields keep their defaults
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sync_last_days": `), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
