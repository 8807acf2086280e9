package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oglimmer/picz2/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "10s"
// or as integer nanoseconds. Pointer fields distinguish "absent" from
// zero-valued so the file only overrides what it mentions.
type jsonConfig struct {
	ServerBaseURL     *string         `json:"server_base_url"`
	LibraryPath       *string         `json:"library_path"`
	DataDir           *string         `json:"data_dir"`
	SyncLastDays      *int            `json:"sync_last_days"`
	BatchSize         *int            `json:"batch_size"`
	RetryDelay        *timex.Duration `json:"retry_delay"`
	SyncInterval      *timex.Duration `json:"sync_interval"`
	BackgroundTimeBox *timex.Duration `json:"background_time_box"`
	WifiOnly          *bool           `json:"wifi_only"`
}

// parseJSON overlays cfg with values from the JSON file at path. An empty
// path is a no-op.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if jc.ServerBaseURL != nil {
		cfg.ServerBaseURL = *jc.ServerBaseURL
	}
	if jc.LibraryPath != nil {
		cfg.LibraryPath = *jc.LibraryPath
	}
	if jc.DataDir != nil {
		cfg.DataDir = *jc.DataDir
	}
	if jc.SyncLastDays != nil {
		cfg.SyncLastDays = *jc.SyncLastDays
	}
	if jc.BatchSize != nil {
		cfg.BatchSize = *jc.BatchSize
	}
	if jc.RetryDelay != nil {
		cfg.RetryDelay = jc.RetryDelay.Duration
	}
	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.BackgroundTimeBox != nil {
		cfg.BackgroundTimeBox = jc.BackgroundTimeBox.Duration
	}
	if jc.WifiOnly != nil {
		cfg.WifiOnly = *jc.WifiOnly
	}

	return nil
}
