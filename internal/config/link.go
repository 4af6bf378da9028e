// Package config loads the coprocessor link settings used by the driver
// binaries. The core packages under internal/vision take their parameters
// programmatically; this file format only exists so cmd/visionlink can be
// pointed at a different coprocessor without recompiling.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LinkConfig describes one coprocessor link. All fields are optional in the
// JSON file; the Get* methods provide fallback defaults, so partial configs
// are safe.
type LinkConfig struct {
	// CoprocessorHost is the address of the vision coprocessor on the
	// robot network.
	CoprocessorHost *string `json:"coprocessor_host,omitempty"`

	// TelemetryPort is the local UDP port detection frames arrive on.
	TelemetryPort *int `json:"telemetry_port,omitempty"`

	// CommandPort is the coprocessor's TCP command port.
	CommandPort *int `json:"command_port,omitempty"`

	// TimeSyncPort is the coprocessor's UDP time-sync port.
	TimeSyncPort *int `json:"time_sync_port,omitempty"`

	// TimeSyncSamples is the number of round trips per synchronization run.
	TimeSyncSamples *int `json:"time_sync_samples,omitempty"`

	// ReceivePacing is the delay between telemetry receives, as a duration
	// string like "25ms".
	ReceivePacing *string `json:"receive_pacing,omitempty"`

	// RecordPath is the sqlite file telemetry frames are recorded to.
	// Empty disables recording.
	RecordPath *string `json:"record_path,omitempty"`

	// StatusListen is the HTTP status server address. Empty disables it.
	StatusListen *string `json:"status_listen,omitempty"`
}

// LoadLinkConfig loads a LinkConfig from a JSON file. The file must have a
// .json extension and stay under the max file size.
func LoadLinkConfig(path string) (*LinkConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &LinkConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *LinkConfig) Validate() error {
	for name, p := range map[string]*int{
		"telemetry_port": c.TelemetryPort,
		"command_port":   c.CommandPort,
		"time_sync_port": c.TimeSyncPort,
	} {
		if p != nil && (*p < 0 || *p > 65535) {
			return fmt.Errorf("%s out of range: %d", name, *p)
		}
	}

	if c.TimeSyncSamples != nil && *c.TimeSyncSamples < 1 {
		return fmt.Errorf("time_sync_samples must be positive, got %d", *c.TimeSyncSamples)
	}

	if c.ReceivePacing != nil && *c.ReceivePacing != "" {
		if _, err := time.ParseDuration(*c.ReceivePacing); err != nil {
			return fmt.Errorf("invalid receive_pacing %q: %w", *c.ReceivePacing, err)
		}
	}

	return nil
}

// GetCoprocessorHost returns the coprocessor address or the default.
// 10.5.37.x is the team 537 robot subnet.
func (c *LinkConfig) GetCoprocessorHost() string {
	if c.CoprocessorHost == nil || *c.CoprocessorHost == "" {
		return "10.5.37.11"
	}
	return *c.CoprocessorHost
}

// GetTelemetryPort returns the telemetry port or the default.
func (c *LinkConfig) GetTelemetryPort() int {
	if c.TelemetryPort == nil {
		return 5800
	}
	return *c.TelemetryPort
}

// GetCommandPort returns the command port or the default.
func (c *LinkConfig) GetCommandPort() int {
	if c.CommandPort == nil {
		return 5801
	}
	return *c.CommandPort
}

// GetTimeSyncPort returns the time-sync port or the default.
func (c *LinkConfig) GetTimeSyncPort() int {
	if c.TimeSyncPort == nil {
		return 5802
	}
	return *c.TimeSyncPort
}

// GetTimeSyncSamples returns the sample count or the default.
func (c *LinkConfig) GetTimeSyncSamples() int {
	if c.TimeSyncSamples == nil {
		return 10
	}
	return *c.TimeSyncSamples
}

// GetReceivePacing parses and returns the pacing as a time.Duration.
func (c *LinkConfig) GetReceivePacing() time.Duration {
	if c.ReceivePacing == nil || *c.ReceivePacing == "" {
		return 25 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.ReceivePacing)
	if err != nil {
		return 25 * time.Millisecond
	}
	return d
}

// GetRecordPath returns the sqlite recording path; empty means disabled.
func (c *LinkConfig) GetRecordPath() string {
	if c.RecordPath == nil {
		return ""
	}
	return *c.RecordPath
}

// GetStatusListen returns the status server address; empty means disabled.
func (c *LinkConfig) GetStatusListen() string {
	if c.StatusListen == nil {
		return ""
	}
	return *c.StatusListen
}
