package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.ServerURL, "http://127.0.0.1:8080")
	assert.Equal(t, c.Concurrency, 3)
	assert.Equal(t, c.RequestTimeout, 30*time.Second)
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cmd", "-a", "http://example:9999", "-n", "5", "-t", "15"}

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NotPanics(t, func() { parseFlags(cfg) })

	assert.Equal(t, "http://example:9999", cfg.ServerURL)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	b, err := json.Marshal(map[string]any{
		"server_url":      "http://json:8080",
		"concurrency":     4,
		"request_timeout": "45s",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "http://json:8080", cfg.ServerURL)
		assert.Equal(t, 4, cfg.Concurrency)
		assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{ServerURL: "kept", Concurrency: 2, RequestTimeout: time.Second}
		parseJson(cfg)

		assert.Equal(t, "kept", cfg.ServerURL)
		assert.Equal(t, 2, cfg.Concurrency)
		assert.Equal(t, time.Second, cfg.RequestTimeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))
		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
