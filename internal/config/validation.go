// internal/config/validation.go - Configuration validation
package config

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/multierr"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/tile"
)

// Validate validates the configuration structure and values. Every invalid
// section is reported, not only the first one.
func Validate(config *Config) error {
	var err error

	if e := validateWFS(&config.WFS); e != nil {
		err = multierr.Append(err, fmt.Errorf("wfs configuration invalid: %w", e))
	}

	if e := validateDestination(&config.Destination); e != nil {
		err = multierr.Append(err, fmt.Errorf("destination configuration invalid: %w", e))
	}

	if e := validateGrid(&config.Grid); e != nil {
		err = multierr.Append(err, fmt.Errorf("grid configuration invalid: %w", e))
	}

	if e := validateBatch(&config.Batch); e != nil {
		err = multierr.Append(err, fmt.Errorf("batch configuration invalid: %w", e))
	}

	if e := validateNetwork(&config.Network); e != nil {
		err = multierr.Append(err, fmt.Errorf("network configuration invalid: %w", e))
	}

	if e := validateLogging(&config.Logging); e != nil {
		err = multierr.Append(err, fmt.Errorf("logging configuration invalid: %w", e))
	}

	return err
}

// validateWFS validates the feature service parameters
func validateWFS(config *WFSConfig) error {
	if config.URL == "" {
		return fmt.Errorf("url is required")
	}

	u, err := url.Parse(config.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https, got %q", u.Scheme)
	}

	if strings.TrimSpace(config.Layer) == "" {
		return fmt.Errorf("layer is required")
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// validateDestination validates the load target
func validateDestination(config *DestinationConfig) error {
	driver := internal.DriverType(strings.ToLower(config.Driver))
	switch driver {
	case internal.DriverPgx, internal.DriverPQ:
		if config.Connection == "" {
			return fmt.Errorf("connection is required for driver %s", driver)
		}
	case internal.DriverScript:
		if config.ScriptPath == "" {
			return fmt.Errorf("script_path is required for driver %s", driver)
		}
	default:
		return fmt.Errorf("invalid driver: %s, must be one of %v", config.Driver,
			[]internal.DriverType{internal.DriverPgx, internal.DriverPQ, internal.DriverScript})
	}

	if strings.TrimSpace(config.Table) == "" {
		return fmt.Errorf("table is required")
	}

	if _, _, err := ParseColumns(config.Columns); err != nil {
		return err
	}

	if config.ConnectTimeout < 0 {
		return fmt.Errorf("connect_timeout must be non-negative")
	}

	return nil
}

// validateGrid validates the extent and tiling parameters
func validateGrid(config *GridConfig) error {
	if _, err := ParseBBox(config.BBox); err != nil {
		return err
	}

	if config.Zoom < 0 || config.Zoom > tile.MaxZoom {
		return fmt.Errorf("zoom must be between 0 and %d", tile.MaxZoom)
	}

	if config.EPSG <= 0 {
		return fmt.Errorf("epsg must be positive")
	}

	return nil
}

// validateBatch validates batch processing configuration parameters
func validateBatch(config *BatchConfig) error {
	if config.Jobs <= 0 {
		return fmt.Errorf("jobs must be positive")
	}

	if config.Jobs > 1000 {
		return fmt.Errorf("jobs must not exceed 1000")
	}

	if config.LargeTileWarning < 0 {
		return fmt.Errorf("large_tile_warning must be non-negative")
	}

	return nil
}

// validateNetwork validates network configuration parameters
func validateNetwork(config *NetworkConfig) error {
	if config.ProxyURL != "" {
		if _, err := url.Parse(config.ProxyURL); err != nil {
			return fmt.Errorf("invalid proxy_url: %w", err)
		}
	}

	if config.UserAgent == "" {
		return fmt.Errorf("user_agent cannot be empty")
	}

	if config.TLSHandshakeTimeout < 0 {
		return fmt.Errorf("tls_handshake_timeout must be non-negative")
	}

	return nil
}

// validateLogging validates logging configuration parameters
func validateLogging(config *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, config.Level) {
		return fmt.Errorf("invalid log level: %s, must be one of %v", config.Level, validLevels)
	}

	validFormats := []string{"console", "json"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid log format: %s, must be one of %v", config.Format, validFormats)
	}

	return nil
}

// contains checks if a string slice contains a specific string (case-insensitive)
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
