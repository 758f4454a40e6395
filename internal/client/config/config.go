// Package config handles configuration for the upload client, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the imgvault CLI.
//
// Fields:
//   - ServerURL: base URL of the catalog server.
//   - Concurrency: parallel upload workers for a batch.
//   - RequestTimeout: per-request HTTP timeout.
type Config struct {
	ServerURL      string
	Concurrency    int
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Concurrency = 3
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
