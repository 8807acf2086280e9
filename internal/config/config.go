// Package config holds runtime settings for the picz2 sync engine.
//
// Configuration is assembled in three stages, later stages winning:
// compiled-in defaults, an optional JSON config file, then command-line
// flags (applied by the CLI layer).
package config

import "time"

// Config holds the sync engine settings.
//
// Units: durations are time.Duration (JSON accepts "10s"-style strings).
type Config struct {
	// ServerBaseURL is the base URL of the photo server, e.g.
	// "https://photos.example.org". API paths are appended to it.
	ServerBaseURL string

	// LibraryPath is the root directory of the local media library.
	LibraryPath string

	// DataDir holds the sqlite database, the export spool directory and the
	// credentials file.
	DataDir string

	// SyncLastDays bounds the sync window: only assets created within the
	// last N days are candidates.
	SyncLastDays int

	// BatchSize is the number of concurrent transfers the scheduler keeps
	// in flight.
	BatchSize int

	// RetryDelay is the flat backoff applied before a failed item re-enters
	// the pending queue.
	RetryDelay time.Duration

	// SyncInterval is how often the run daemon triggers a background sync.
	SyncInterval time.Duration

	// BackgroundTimeBox caps one background sync run. Scheduling work is
	// cancelled at the deadline; dispatched transfers finish on their own.
	BackgroundTimeBox time.Duration

	// WifiOnly records the user preference to sync on unmetered networks
	// only. Enforcement is a platform concern; the engine publishes it.
	WifiOnly bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.LibraryPath = ""
	c.DataDir = "."
	c.SyncLastDays = 3
	c.BatchSize = 3
	c.RetryDelay = 10 * time.Second
	c.SyncInterval = 15 * time.Minute
	c.BackgroundTimeBox = 2 * time.Minute
	c.WifiOnly = true
}

// Load constructs a Config from defaults overlaid with the JSON file at
// path (if path is non-empty). Command-line flags are applied on top by the
// caller.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
